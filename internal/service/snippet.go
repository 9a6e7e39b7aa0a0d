package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learncode/internal/apperror"
	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/model"
)

// SnippetInput is the caller-supplied shape for creating or replacing a
// snippet. The service sanitizes it: title, code, language, and description
// are trimmed; empty tags are filtered out. Duplicate tag values are kept
// as given.
type SnippetInput struct {
	Title       string
	Description string
	Code        string
	Language    string
	IsPublic    bool
	Tags        []string
}

// SnippetService handles the snippet lifecycle: create, edit, delete,
// like/unlike, duplicate. All ownership rules live here — the database
// manager below knows nothing about which user may touch which record.
type SnippetService struct {
	db     *database.Manager
	logger *slog.Logger
}

// NewSnippetService creates a SnippetService.
func NewSnippetService(db *database.Manager, logger *slog.Logger) *SnippetService {
	return &SnippetService{db: db, logger: logger}
}

// sanitize trims the input and filters empty tags. Returns the first
// validation error, or nil when the input is acceptable.
func (in *SnippetInput) sanitize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Code = strings.TrimSpace(in.Code)
	in.Language = strings.TrimSpace(in.Language)

	if in.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if in.Code == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if in.Language == "" {
		return apperror.ValidationFailed("language", "language is required")
	}

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	in.Tags = tags
	return nil
}

// Create validates and stores a new snippet owned by userID. Likes start
// at zero.
func (s *SnippetService) Create(ctx context.Context, userID string, input SnippetInput) (model.Snippet, error) {
	if userID == "" {
		return model.Snippet{}, apperror.ValidationFailed("userId", "user ID is required")
	}
	if err := input.sanitize(); err != nil {
		return model.Snippet{}, err
	}

	now := time.Now()
	snippet := model.Snippet{
		ID:          xid.New().String(),
		Title:       input.Title,
		Description: input.Description,
		Code:        input.Code,
		Language:    input.Language,
		Tags:        input.Tags,
		IsPublic:    input.IsPublic,
		Likes:       0,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveSnippet(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", input.Title),
			slog.String("error", err.Error()),
		)
		return model.Snippet{}, err
	}

	s.logger.Info("snippet created", slog.String("id", snippet.ID), slog.String("userID", userID))
	return snippet, nil
}

// Get returns one of the caller's own snippets. A snippet that exists but
// belongs to someone else reads as not found — the message does not reveal
// whether the id exists at all.
func (s *SnippetService) Get(ctx context.Context, userID, snippetID string) (model.Snippet, error) {
	if userID == "" || snippetID == "" {
		return model.Snippet{}, apperror.ValidationFailed("id", "user ID and snippet ID are required")
	}
	return s.findOwned(ctx, userID, snippetID)
}

// Update replaces the editable fields of one of the caller's snippets.
// Same sanitization as Create; UpdatedAt is touched by the database manager.
func (s *SnippetService) Update(ctx context.Context, userID, snippetID string, input SnippetInput) (model.Snippet, error) {
	if userID == "" || snippetID == "" {
		return model.Snippet{}, apperror.ValidationFailed("id", "user ID and snippet ID are required")
	}
	if err := input.sanitize(); err != nil {
		return model.Snippet{}, err
	}
	if _, err := s.findOwned(ctx, userID, snippetID); err != nil {
		return model.Snippet{}, err
	}

	updated, err := s.db.UpdateSnippet(ctx, snippetID, model.SnippetPatch{
		Title:       &input.Title,
		Description: &input.Description,
		Code:        &input.Code,
		Language:    &input.Language,
		Tags:        &input.Tags,
		IsPublic:    &input.IsPublic,
	})
	if err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", snippetID),
			slog.String("error", err.Error()),
		)
		return model.Snippet{}, err
	}

	s.logger.Info("snippet updated", slog.String("id", snippetID))
	return updated, nil
}

// Delete removes one of the caller's snippets.
func (s *SnippetService) Delete(ctx context.Context, userID, snippetID string) error {
	if userID == "" || snippetID == "" {
		return apperror.ValidationFailed("id", "user ID and snippet ID are required")
	}
	if _, err := s.findOwned(ctx, userID, snippetID); err != nil {
		return err
	}
	if err := s.db.DeleteSnippet(ctx, snippetID); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", snippetID))
	return nil
}

// Like increments a snippet's like count. Any snippet can be liked, not
// just the caller's own.
func (s *SnippetService) Like(ctx context.Context, snippetID string) (model.Snippet, error) {
	return s.adjustLikes(ctx, snippetID, +1)
}

// Unlike decrements a snippet's like count, clamping at zero — a snippet
// never shows negative likes no matter how many unlikes arrive.
func (s *SnippetService) Unlike(ctx context.Context, snippetID string) (model.Snippet, error) {
	return s.adjustLikes(ctx, snippetID, -1)
}

// Duplicate copies one of the caller's snippets into a new private snippet.
// The default title appends " (Copy)"; pass newTitle to override.
func (s *SnippetService) Duplicate(ctx context.Context, userID, snippetID, newTitle string) (model.Snippet, error) {
	original, err := s.Get(ctx, userID, snippetID)
	if err != nil {
		return model.Snippet{}, err
	}

	title := strings.TrimSpace(newTitle)
	if title == "" {
		title = original.Title + " (Copy)"
	}

	return s.Create(ctx, userID, SnippetInput{
		Title:       title,
		Description: original.Description,
		Code:        original.Code,
		Language:    original.Language,
		IsPublic:    false,
		Tags:        append([]string(nil), original.Tags...),
	})
}

func (s *SnippetService) adjustLikes(ctx context.Context, snippetID string, delta int) (model.Snippet, error) {
	if snippetID == "" {
		return model.Snippet{}, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippets, err := s.db.GetSnippets(ctx)
	if err != nil {
		return model.Snippet{}, err
	}
	for _, snippet := range snippets {
		if snippet.ID != snippetID {
			continue
		}
		likes := snippet.Likes + delta
		if likes < 0 {
			likes = 0
		}
		return s.db.UpdateSnippet(ctx, snippetID, model.SnippetPatch{Likes: &likes})
	}
	return model.Snippet{}, apperror.NotFound("snippet", snippetID)
}

func (s *SnippetService) findOwned(ctx context.Context, userID, snippetID string) (model.Snippet, error) {
	snippets, err := s.db.GetSnippets(ctx)
	if err != nil {
		return model.Snippet{}, err
	}
	for _, snippet := range snippets {
		if snippet.ID == snippetID && snippet.UserID == userID {
			return snippet, nil
		}
	}
	return model.Snippet{}, apperror.NotFound("snippet", snippetID)
}
