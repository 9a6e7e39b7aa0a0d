package database

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learncode/internal/apperror"
	"github.com/sakif/learncode/internal/model"
)

// maxEvents caps the persisted event log. Appends beyond the cap drop the
// oldest entries first.
const maxEvents = 100

// LogEvent appends an entry to the persisted event log. Logging is
// best-effort bookkeeping: a failure here is reported to the caller but
// services generally ignore it rather than fail the operation they were
// recording.
func (m *Manager) LogEvent(ctx context.Context, level, message string, eventCtx map[string]string, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, err := m.Events(ctx)
	if err != nil {
		return err
	}

	events = append(events, model.Event{
		ID:        xid.New().String(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Context:   eventCtx,
		UserID:    userID,
	})
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}

	data, err := json.Marshal(events)
	if err != nil {
		return apperror.Storage("encoding events", err)
	}
	if err := m.store.Set(ctx, eventsKey, string(data)); err != nil {
		return apperror.Storage("writing events", err)
	}
	return nil
}

// Events returns the full event log, oldest first.
func (m *Manager) Events(ctx context.Context) ([]model.Event, error) {
	data, ok, err := m.store.Get(ctx, eventsKey)
	if err != nil {
		return nil, apperror.Storage("reading events", err)
	}
	if !ok {
		return []model.Event{}, nil
	}
	var events []model.Event
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		m.logger.Warn("invalid event log, resetting", slog.String("error", err.Error()))
		return []model.Event{}, nil
	}
	return events, nil
}

// RecentEvents returns up to limit events, newest first.
func (m *Manager) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	events, err := m.Events(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// ClearEvents empties the event log. Idempotent.
func (m *Manager) ClearEvents(ctx context.Context) error {
	if err := m.store.Remove(ctx, eventsKey); err != nil {
		return apperror.Storage("clearing events", err)
	}
	return nil
}

// EventCounts returns per-level totals for the event log.
func (m *Manager) EventCounts(ctx context.Context) (map[string]int, error) {
	events, err := m.Events(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, 3)
	for _, event := range events {
		counts[event.Level]++
	}
	return counts, nil
}
