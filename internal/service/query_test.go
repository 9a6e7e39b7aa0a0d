package service

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/model"
)

// saveRawSnippet persists a snippet directly, bypassing the snippet service,
// so tests can control timestamps, likes, and ownership exactly.
func saveRawSnippet(t *testing.T, db *database.Manager, s model.Snippet) {
	t.Helper()
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if err := db.SaveSnippet(context.Background(), s); err != nil {
		t.Fatalf("setup: SaveSnippet(%s): %v", s.ID, err)
	}
}

func saveRawUser(t *testing.T, db *database.Manager, id, name string) {
	t.Helper()
	now := time.Now()
	err := db.SaveUser(context.Background(), model.User{
		ID:           id,
		Name:         name,
		Email:        id + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("setup: SaveUser(%s): %v", id, err)
	}
}

func newTestQueryService(t *testing.T) (*QueryService, *database.Manager) {
	t.Helper()
	db := newTestDB(t)
	return NewQueryService(db, testLogger()), db
}

func TestUserSnippets(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "Mine", Code: "c", Language: "Go", UserID: "u1"})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "Theirs", Code: "c", Language: "Go", UserID: "u2"})

	owned, err := svc.UserSnippets(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UserSnippets() error = %v", err)
	}
	if len(owned) != 1 || owned[0].ID != "s1" {
		t.Errorf("owned = %+v, want only s1", owned)
	}
}

func TestRecentSnippets_NewestFirstAndTruncated(t *testing.T) {
	svc, db := newTestQueryService(t)
	now := time.Now()

	for i, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		saveRawSnippet(t, db, model.Snippet{
			ID: id, Title: id, Code: "c", Language: "Go", UserID: "u1",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := svc.RecentSnippets(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("RecentSnippets() error = %v", err)
	}
	if len(recent) != DefaultRecentLimit {
		t.Fatalf("len = %d, want default limit %d", len(recent), DefaultRecentLimit)
	}
	if recent[0].ID != "s6" || recent[len(recent)-1].ID != "s3" {
		t.Errorf("order = %v, want s6..s3 newest first", ids(recent))
	}
}

func TestPublicSnippets_AnnotatesAuthor(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawUser(t, db, "u1", "Alice")
	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "Public", Code: "c", Language: "Go", UserID: "u1", IsPublic: true})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "Private", Code: "c", Language: "Go", UserID: "u1"})
	// An orphan: its owner was never saved.
	saveRawSnippet(t, db, model.Snippet{ID: "s3", Title: "Orphan", Code: "c", Language: "Go", UserID: "ghost", IsPublic: true})

	public, err := svc.PublicSnippets(context.Background())
	if err != nil {
		t.Fatalf("PublicSnippets() error = %v", err)
	}
	if len(public) != 2 {
		t.Fatalf("len = %d, want 2 (private excluded)", len(public))
	}

	names := map[string]string{}
	for _, s := range public {
		names[s.ID] = s.UserName
	}
	if names["s1"] != "Alice" {
		t.Errorf("s1 UserName = %q, want %q", names["s1"], "Alice")
	}
	if names["s3"] != "Unknown User" {
		t.Errorf("s3 UserName = %q, want %q", names["s3"], "Unknown User")
	}
}

func TestSearch(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "Debounce helper", Code: "c", Language: "JavaScript", UserID: "u1", Tags: []string{"events"}})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "CSV reader", Description: "stream rows", Code: "c", Language: "Python", UserID: "u1"})
	saveRawSnippet(t, db, model.Snippet{ID: "s3", Title: "Other user's", Code: "c", Language: "JavaScript", UserID: "u2"})

	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query yields nothing", "   ", nil},
		{"title match case-insensitive", "DEBOUNCE", []string{"s1"}},
		{"language match", "python", []string{"s2"}},
		{"description match", "rows", []string{"s2"}},
		{"tag match", "events", []string{"s1"}},
		{"other users excluded", "other", nil},
		{"no match", "zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, "u1", tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("got %v, want %v", ids(got), tt.want)
				}
			}
		})
	}
}

func TestSearchPublic_MatchesAuthorName(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawUser(t, db, "u1", "Alice Wonder")
	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "Something", Code: "c", Language: "Go", UserID: "u1", IsPublic: true})

	got, err := svc.SearchPublic(context.Background(), "wonder")
	if err != nil {
		t.Fatalf("SearchPublic() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("got = %v, want s1 via author-name match", ids(got))
	}
}

func TestPopularSnippets_RankedByLikes(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "a", Code: "c", Language: "Go", UserID: "u1", IsPublic: true, Likes: 3})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "b", Code: "c", Language: "Go", UserID: "u1", IsPublic: true, Likes: 10})
	saveRawSnippet(t, db, model.Snippet{ID: "s3", Title: "c", Code: "c", Language: "Go", UserID: "u1", IsPublic: true, Likes: 7})
	saveRawSnippet(t, db, model.Snippet{ID: "s4", Title: "d", Code: "c", Language: "Go", UserID: "u1", Likes: 99})

	popular, err := svc.PopularSnippets(context.Background(), 2)
	if err != nil {
		t.Fatalf("PopularSnippets() error = %v", err)
	}
	got := ids(popular)
	// s4 has the most likes but is private, so it never ranks.
	if len(got) != 2 || got[0] != "s2" || got[1] != "s3" {
		t.Errorf("order = %v, want [s2 s3]", got)
	}
}

func TestSnippetsByLanguage(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "a", Code: "c", Language: "Go", UserID: "u1"})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "b", Code: "c", Language: "go", UserID: "u1"})
	saveRawSnippet(t, db, model.Snippet{ID: "s3", Title: "c", Code: "c", Language: "Python", UserID: "u1"})

	got, err := svc.SnippetsByLanguage(context.Background(), "GO")
	if err != nil {
		t.Fatalf("SnippetsByLanguage() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (case-insensitive match)", len(got))
	}
}

func TestLanguageStats_KeysVerbatim(t *testing.T) {
	svc, db := newTestQueryService(t)

	saveRawSnippet(t, db, model.Snippet{ID: "s1", Title: "a", Code: "c", Language: "Go", UserID: "u1"})
	saveRawSnippet(t, db, model.Snippet{ID: "s2", Title: "b", Code: "c", Language: "go", UserID: "u1"})

	stats, err := svc.LanguageStats(context.Background())
	if err != nil {
		t.Fatalf("LanguageStats() error = %v", err)
	}
	// Stats group by the stored string exactly as typed.
	if stats["Go"] != 1 || stats["go"] != 1 {
		t.Errorf("stats = %v, want separate Go and go keys", stats)
	}
}

func ids(snippets []model.Snippet) []string {
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, s.ID)
	}
	return out
}
