package migrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learncode/internal/auth"
	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/model"
)

// seedSampleData loads the demo accounts and snippets. Skipped entirely when
// either collection already has records, so re-running initialization never
// duplicates the seed.
func seedSampleData(ctx context.Context, db *database.Manager, passwords *auth.PasswordService, logger *slog.Logger) error {
	users, err := db.GetUsers(ctx)
	if err != nil {
		return err
	}
	snippets, err := db.GetSnippets(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 || len(snippets) > 0 {
		logger.Debug("data already present, skipping seed")
		return nil
	}

	demoHash, err := passwords.Hash("demo123")
	if err != nil {
		return err
	}

	now := time.Now()
	daysAgo := func(d int) time.Time { return now.AddDate(0, 0, -d) }

	seedUsers := []model.User{
		{ID: "user1", Name: "Alex Johnson", Email: "alex@example.com", PasswordHash: demoHash, CreatedAt: daysAgo(7), UpdatedAt: daysAgo(7)},
		{ID: "user2", Name: "Sarah Chen", Email: "sarah@example.com", PasswordHash: demoHash, CreatedAt: daysAgo(5), UpdatedAt: daysAgo(5)},
		{ID: "user3", Name: "Mike Rodriguez", Email: "mike@example.com", PasswordHash: demoHash, CreatedAt: daysAgo(3), UpdatedAt: daysAgo(3)},
	}
	for _, user := range seedUsers {
		if err := db.SaveUser(ctx, user); err != nil {
			return err
		}
	}

	seedSnippets := []model.Snippet{
		{
			Title:       "Debounced Search Input",
			Description: "Delay a search callback until the user stops typing.",
			Code: `function debounce(fn, wait) {
  let timer;
  return (...args) => {
    clearTimeout(timer);
    timer = setTimeout(() => fn(...args), wait);
  };
}`,
			Language: "JavaScript",
			Tags:     []string{"javascript", "utility", "events"},
			IsPublic: true,
			Likes:    12,
			UserID:   "user1",
		},
		{
			Title:       "Read CSV into Dicts",
			Description: "Stream a CSV file as dictionaries keyed by header row.",
			Code: `import csv

def read_rows(path):
    with open(path, newline="") as f:
        yield from csv.DictReader(f)`,
			Language: "Python",
			Tags:     []string{"python", "csv", "files"},
			IsPublic: true,
			Likes:    8,
			UserID:   "user2",
		},
		{
			Title:       "Centered Flex Container",
			Description: "Center content both ways with three lines of flexbox.",
			Code: `.center {
  display: flex;
  align-items: center;
  justify-content: center;
}`,
			Language: "CSS",
			Tags:     []string{"css", "flexbox", "layout"},
			IsPublic: true,
			Likes:    15,
			UserID:   "user1",
		},
		{
			Title:       "Worker Pool",
			Description: "Fan work out to a fixed number of goroutines.",
			Code: `func pool(jobs <-chan int, workers int, do func(int)) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				do(j)
			}
		}()
	}
	wg.Wait()
}`,
			Language: "Go",
			Tags:     []string{"go", "concurrency", "goroutines"},
			IsPublic: true,
			Likes:    21,
			UserID:   "user3",
		},
		{
			Title:       "Typed Fetch Wrapper",
			Description: "A small generic wrapper around fetch with JSON decoding.",
			Code: `async function getJSON<T>(url: string): Promise<T> {
  const res = await fetch(url);
  if (!res.ok) throw new Error(res.statusText);
  return res.json() as Promise<T>;
}`,
			Language: "TypeScript",
			Tags:     []string{"typescript", "fetch", "http"},
			IsPublic: false,
			Likes:    0,
			UserID:   "user2",
		},
	}
	for i, snippet := range seedSnippets {
		snippet.ID = xid.New().String()
		created := daysAgo(len(seedSnippets) - i)
		snippet.CreatedAt = created
		snippet.UpdatedAt = created
		if err := db.SaveSnippet(ctx, snippet); err != nil {
			return err
		}
	}

	logger.Info("sample data seeded",
		slog.Int("users", len(seedUsers)),
		slog.Int("snippets", len(seedSnippets)),
	)
	return nil
}
