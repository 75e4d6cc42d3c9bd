// Package syncer drives a full catalog synchronization run: walk the
// listing pages, extract each detail page, merge duplicates, and
// persist the merged records.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/dedup"
	"github.com/avdeev/switch-catalog/internal/extract"
	"github.com/avdeev/switch-catalog/internal/fetch"
	"github.com/avdeev/switch-catalog/internal/metrics"
	"github.com/avdeev/switch-catalog/internal/store"
)

// ErrRunInProgress is returned when a run is requested while another
// run is still active.
var ErrRunInProgress = errors.New("sync run already in progress")

// State identifies the phase a run is in.
type State string

const (
	StateIdle       State = "idle"
	StateCrawling   State = "crawling"
	StateExtracting State = "extracting"
	StateMerging    State = "merging"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Crawler walks the listing pages and returns the discovered entries
// plus the number of pages that produced at least one entry.
type Crawler interface {
	Walk(ctx context.Context) ([]catalog.Entry, int, error)
}

// Extractor turns one detail page into a game record.
type Extractor interface {
	Extract(markup []byte, pageURL string) (catalog.Game, error)
}

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts time for run timestamps.
type Clock interface {
	Now() time.Time
}

// Status is a point-in-time snapshot of the current or most recent run.
type Status struct {
	RunID      string           `json:"run_id,omitempty"`
	State      State            `json:"state"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Stats      catalog.RunStats `json:"stats"`
	Error      string           `json:"error,omitempty"`
}

// Orchestrator runs synchronizations one at a time and exposes their
// progress.
type Orchestrator struct {
	crawler   Crawler
	fetcher   fetch.PageFetcher
	extractor Extractor
	db        store.Store
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	status  Status
}

// New assembles an orchestrator from its pipeline stages.
func New(crawler Crawler, fetcher fetch.PageFetcher, extractor Extractor, db store.Store, ids IDGenerator, clock Clock, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		crawler:   crawler,
		fetcher:   fetcher,
		extractor: extractor,
		db:        db,
		ids:       ids,
		clock:     clock,
		logger:    logger,
		status:    Status{State: StateIdle},
	}
}

// Status returns a snapshot of the current or most recent run.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Run executes one full synchronization. Only one run may be active at
// a time; concurrent calls fail with ErrRunInProgress. A run fails
// outright only when the first listing page is unreachable or the
// context is canceled; individual page and record failures are counted
// and skipped.
func (o *Orchestrator) Run(ctx context.Context) (catalog.RunStats, error) {
	if err := o.begin(); err != nil {
		return catalog.RunStats{}, err
	}

	stats, err := o.run(ctx)
	o.finish(stats, err)
	return stats, err
}

// Start launches a run in the background and returns its id. The
// in-progress check happens before Start returns, so callers can map
// ErrRunInProgress to a conflict response.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	if err := o.begin(); err != nil {
		return "", err
	}
	o.mu.Lock()
	runID := o.status.RunID
	o.mu.Unlock()

	go func() {
		stats, err := o.run(ctx)
		o.finish(stats, err)
	}()
	return runID, nil
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrRunInProgress
	}
	runID, err := o.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	now := o.clock.Now()
	o.running = true
	o.status = Status{
		RunID:     runID,
		State:     StateCrawling,
		StartedAt: &now,
	}
	o.logger.Info("Sync run started", zap.String("run_id", o.status.RunID))
	return nil
}

func (o *Orchestrator) finish(stats catalog.RunStats, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.clock.Now()
	o.running = false
	o.status.FinishedAt = &now
	o.status.Stats = stats
	if err != nil {
		o.status.State = StateFailed
		o.status.Error = err.Error()
		metrics.ObserveSyncRun(string(StateFailed))
		o.logger.Error("Sync run failed",
			zap.String("run_id", o.status.RunID), zap.Error(err))
		return
	}
	o.status.State = StateDone
	metrics.ObserveSyncRun(string(StateDone))
	o.logger.Info("Sync run finished",
		zap.String("run_id", o.status.RunID),
		zap.Int("pages", stats.Pages),
		zap.Int("entries", stats.Entries),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed))
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.status.State = state
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context) (catalog.RunStats, error) {
	var stats catalog.RunStats

	entries, pages, err := o.crawler.Walk(ctx)
	if err != nil {
		return stats, fmt.Errorf("walk listing pages: %w", err)
	}
	stats.Pages = pages
	stats.Entries = len(entries)

	o.setState(StateExtracting)
	games, failed, err := o.extractAll(ctx, entries)
	stats.Failed += failed
	if err != nil {
		return stats, err
	}
	stats.Processed = len(games)

	o.setState(StateMerging)
	merger := dedup.NewMerger()
	for _, game := range games {
		merger.Add(game)
	}
	if dropped := len(games) - merger.Len(); dropped > 0 {
		o.logger.Debug("Merged duplicate records", zap.Int("dropped", dropped))
	}

	o.setState(StatePersisting)
	for _, game := range merger.Records() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		persisted, created, err := o.db.Upsert(ctx, game)
		if err != nil {
			stats.Failed++
			o.logger.Warn("Upsert failed",
				zap.String("title", game.Title), zap.Error(err))
			continue
		}
		metrics.ObserveUpsert(created)
		if created {
			stats.Created++
			o.notifyNewGame(ctx, persisted)
		} else {
			stats.Updated++
		}
	}
	return stats, nil
}

// extractAll fetches and extracts each entry's detail page. Failures
// are counted, not fatal; only context cancellation aborts the loop.
func (o *Orchestrator) extractAll(ctx context.Context, entries []catalog.Entry) ([]catalog.Game, int, error) {
	var (
		games  []catalog.Game
		failed int
	)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return games, failed, err
		}
		markup, ok := o.fetcher.Fetch(ctx, entry.DetailURL)
		if !ok {
			failed++
			o.logger.Warn("Detail page unavailable",
				zap.String("url", entry.DetailURL))
			continue
		}
		game, err := o.extractor.Extract(markup, entry.DetailURL)
		if errors.Is(err, extract.ErrNoTitle) {
			// The listing already gave us a usable title.
			game = fallbackGame(entry)
			err = nil
		}
		if err != nil {
			failed++
			o.logger.Warn("Extraction failed",
				zap.String("url", entry.DetailURL), zap.Error(err))
			continue
		}
		if !catalog.ValidTitle(game.Title) {
			game.Title = entry.Title
		}
		if !game.Normalize() {
			failed++
			continue
		}
		games = append(games, game)
	}
	return games, failed, nil
}

func fallbackGame(entry catalog.Entry) catalog.Game {
	return catalog.Game{
		Title:  entry.Title,
		URL:    entry.DetailURL,
		Rating: catalog.RatingUnknown,
	}
}

func (o *Orchestrator) notifyNewGame(ctx context.Context, game catalog.Game) {
	sent, err := o.db.NotificationSent(ctx, game.ID)
	if err != nil || sent {
		return
	}
	if err := o.db.AddNotification(ctx, game.ID); err != nil {
		o.logger.Warn("Recording notification failed",
			zap.Int64("game_id", game.ID), zap.Error(err))
		return
	}
	o.logger.Info("New game recorded",
		zap.Int64("game_id", game.ID), zap.String("title", game.Title))
}
