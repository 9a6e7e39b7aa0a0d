package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/model"
)

// Default result sizes for the truncated views.
const (
	DefaultRecentLimit  = 4
	DefaultPopularLimit = 10
)

// QueryService derives read views over the collections: per-user listings,
// the public feed, free-text search, popularity ranking, and language
// statistics. Every view is a full scan — the collections have no indexes,
// and at this scale none are needed.
type QueryService struct {
	db     *database.Manager
	logger *slog.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(db *database.Manager, logger *slog.Logger) *QueryService {
	return &QueryService{db: db, logger: logger}
}

// UserSnippets returns all snippets owned by userID.
func (q *QueryService) UserSnippets(ctx context.Context, userID string) ([]model.Snippet, error) {
	snippets, err := q.db.GetSnippets(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]model.Snippet, 0)
	for _, snippet := range snippets {
		if snippet.UserID == userID {
			owned = append(owned, snippet)
		}
	}
	return owned, nil
}

// RecentSnippets returns the user's newest snippets, newest first,
// truncated to limit (default 4).
func (q *QueryService) RecentSnippets(ctx context.Context, userID string, limit int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	owned, err := q.UserSnippets(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(owned)
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

// PublicSnippets returns every public snippet, newest first, each annotated
// with the owner's name. A snippet whose owner record is missing gets the
// literal "Unknown User" — orphans stay visible.
func (q *QueryService) PublicSnippets(ctx context.Context) ([]model.Snippet, error) {
	snippets, err := q.db.GetSnippets(ctx)
	if err != nil {
		return nil, err
	}
	users, err := q.db.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}

	public := make([]model.Snippet, 0)
	for _, snippet := range snippets {
		if !snippet.IsPublic {
			continue
		}
		if name, ok := names[snippet.UserID]; ok {
			snippet.UserName = name
		} else {
			snippet.UserName = "Unknown User"
		}
		public = append(public, snippet)
	}
	sortByCreatedDesc(public)
	return public, nil
}

// Search matches query against the user's own snippets. The match is a
// case-insensitive substring test over title, language, description, and
// each tag. An empty (or whitespace) query yields an empty result, not
// "all records".
func (q *QueryService) Search(ctx context.Context, userID, query string) ([]model.Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Snippet{}, nil
	}
	owned, err := q.UserSnippets(ctx, userID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := make([]model.Snippet, 0)
	for _, snippet := range owned {
		if snippetMatches(snippet, needle) {
			matched = append(matched, snippet)
		}
	}
	return matched, nil
}

// SearchPublic matches query against the public feed. In addition to the
// fields Search covers, the annotated author name participates in the match.
func (q *QueryService) SearchPublic(ctx context.Context, query string) ([]model.Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Snippet{}, nil
	}
	public, err := q.PublicSnippets(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := make([]model.Snippet, 0)
	for _, snippet := range public {
		if snippetMatches(snippet, needle) ||
			strings.Contains(strings.ToLower(snippet.UserName), needle) {
			matched = append(matched, snippet)
		}
	}
	return matched, nil
}

// PopularSnippets returns public snippets ranked by likes, most first,
// truncated to limit (default 10).
func (q *QueryService) PopularSnippets(ctx context.Context, limit int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	public, err := q.PublicSnippets(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(public, func(i, j int) bool {
		return public[i].Likes > public[j].Likes
	})
	if len(public) > limit {
		public = public[:limit]
	}
	return public, nil
}

// SnippetsByLanguage returns all snippets whose language equals the given
// one, compared case-insensitively.
func (q *QueryService) SnippetsByLanguage(ctx context.Context, language string) ([]model.Snippet, error) {
	snippets, err := q.db.GetSnippets(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]model.Snippet, 0)
	for _, snippet := range snippets {
		if strings.EqualFold(snippet.Language, language) {
			matched = append(matched, snippet)
		}
	}
	return matched, nil
}

// LanguageStats counts snippets grouped by their language value verbatim —
// "Go" and "go" are different keys, matching whatever users typed.
func (q *QueryService) LanguageStats(ctx context.Context) (map[string]int, error) {
	snippets, err := q.db.GetSnippets(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int)
	for _, snippet := range snippets {
		stats[snippet.Language]++
	}
	return stats, nil
}

func snippetMatches(snippet model.Snippet, needle string) bool {
	if strings.Contains(strings.ToLower(snippet.Title), needle) ||
		strings.Contains(strings.ToLower(snippet.Language), needle) ||
		strings.Contains(strings.ToLower(snippet.Description), needle) {
		return true
	}
	for _, tag := range snippet.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func sortByCreatedDesc(snippets []model.Snippet) {
	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].CreatedAt.After(snippets[j].CreatedAt)
	})
}
