// Package hour owns the hourly lifecycle: making sure the current hour
// bucket has a question row, and sweeping away rows whose hour has passed.
package hour

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/agorhour/agorhour/internal/models"
	"github.com/agorhour/agorhour/internal/question"
)

const (
	// TickInterval is how often the background sweep runs. Deliberately much
	// shorter than an hour so the rollover never depends on clock alignment.
	TickInterval = 30 * time.Second

	// PurgeGrace is how long after expiry an hour's data survives, so the
	// frontend has a moment to show the top answer before everything goes.
	PurgeGrace = 8 * time.Second
)

// Notifier receives lifecycle events for the live feed. May be nil.
type Notifier interface {
	Notify(event string, data any)
}

// Manager runs the hour lifecycle against the store.
type Manager struct {
	db    *gorm.DB
	gen   *question.Generator
	clock clockwork.Clock
	notif Notifier

	busy atomic.Bool
}

// NewManager wires a lifecycle manager. notifier may be nil.
func NewManager(db *gorm.DB, gen *question.Generator, clock clockwork.Clock, notifier Notifier) *Manager {
	return &Manager{db: db, gen: gen, clock: clock, notif: notifier}
}

// KeyFor returns the canonical UTC bucket key for t.
func KeyFor(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// EndOfHour returns the first instant of the next UTC hour after t.
func EndOfHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}

// EnsureCurrentHour returns the question row for the current hour bucket,
// creating it first if needed. Two callers racing to create the same bucket
// are settled by the unique constraint on hour_key: the loser re-reads and
// returns the winner's row.
func (m *Manager) EnsureCurrentHour(ctx context.Context) (*models.HourQuestion, error) {
	now := m.clock.Now()
	key := KeyFor(now)

	var hq models.HourQuestion
	err := m.db.WithContext(ctx).Where("hour_key = ?", key).First(&hq).Error
	if err == nil {
		return &hq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hq = models.HourQuestion{
		HourKey:   key,
		Text:      m.gen.Generate(ctx, now),
		OpenMode:  true,
		ExpiresAt: EndOfHour(now),
	}
	err = m.db.WithContext(ctx).Create(&hq).Error
	if err == nil {
		if m.notif != nil {
			m.notif.Notify("hour", hourPayload(&hq))
		}
		return &hq, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the insert race; the row exists now.
		hq = models.HourQuestion{}
		if rerr := m.db.WithContext(ctx).Where("hour_key = ?", key).First(&hq).Error; rerr != nil {
			return nil, rerr
		}
		return &hq, nil
	}
	return nil, err
}

func hourPayload(hq *models.HourQuestion) map[string]any {
	return map[string]any{
		"id":         hq.ID,
		"hour_key":   hq.HourKey,
		"text":       hq.Text,
		"expires_at": hq.ExpiresAt,
		"open_mode":  hq.OpenMode,
	}
}

// PurgeExpired deletes every hour row whose expiry passed the grace period.
// Answers and reactions go with it via the cascade constraints. Returns the
// number of hour rows removed.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := m.clock.Now().UTC().Add(-PurgeGrace)
	res := m.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.HourQuestion{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 && m.notif != nil {
		m.notif.Notify("purge", map[string]any{"hours": res.RowsAffected})
	}
	return res.RowsAffected, nil
}

// Tick runs one ensure+purge pass. At most one Tick executes at a time;
// overlapping calls (the background loop racing the manual cron trigger, or
// a slow pass meeting the next interval) return immediately instead of
// queueing. Errors are logged and retried on the next pass, never fatal.
func (m *Manager) Tick(ctx context.Context) {
	if !m.busy.CompareAndSwap(false, true) {
		return
	}
	defer m.busy.Store(false)

	if _, err := m.EnsureCurrentHour(ctx); err != nil {
		log.Printf("lifecycle: ensure current hour failed: %v", err)
	}
	if _, err := m.PurgeExpired(ctx); err != nil {
		log.Printf("lifecycle: purge failed: %v", err)
	}
}

// Run drives Tick on a fixed interval until ctx is cancelled. One immediate
// pass primes the current hour so the first request never waits on
// generation.
func (m *Manager) Run(ctx context.Context) {
	m.Tick(ctx)

	ticker := m.clock.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Tick(ctx)
		}
	}
}
