package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursehub-backend/internal/events"
	"coursehub-backend/internal/models"
)

// DefaultDebounceWindow is how long a lesson must stay quiet before its latest
// progress is written.
const DefaultDebounceWindow = 5 * time.Second

type progressStore interface {
	Upsert(ctx context.Context, u models.ProgressUpdate) (*models.ProgressRecord, error)
	QueryByUserAndLessons(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*models.ProgressRecord, error)
}

// ProgressNotifier tells the reporting user how a write went.
type ProgressNotifier interface {
	ProgressSaved(ctx context.Context, rec *models.ProgressRecord)
	ProgressSaveFailed(ctx context.Context, userID, lessonID uuid.UUID, err error)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules the debounce timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type progressKey struct {
	userID   uuid.UUID
	lessonID uuid.UUID
}

type pendingWrite struct {
	timer  Timer
	gen    uint64
	update models.ProgressUpdate
}

type ProgressTrackerOptions struct {
	DebounceWindow time.Duration
	Policy         CompletionPolicy
	Clock          Clock
	Notifier       ProgressNotifier
	Events         *events.Publisher
	Logger         *zap.Logger
}

// ProgressTracker coalesces playback ticks into at most one pending write per
// (user, lesson). Completion bypasses the debounce window.
type ProgressTracker struct {
	store    progressStore
	window   time.Duration
	policy   CompletionPolicy
	clock    Clock
	notifier ProgressNotifier
	events   *events.Publisher
	log      *zap.Logger

	mu      sync.Mutex
	pending map[progressKey]*pendingWrite
	cache   map[progressKey]*models.ProgressRecord
	// keys whose completion has been written or is being written
	completed map[progressKey]struct{}
	gen       uint64
	closed    bool

	inflight sync.WaitGroup
}

func NewProgressTracker(store progressStore, opts ProgressTrackerOptions) *ProgressTracker {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.Policy.Threshold == 0 {
		opts.Policy = NewCompletionPolicy(DefaultCompletionThreshold)
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ProgressTracker{
		store:     store,
		window:    opts.DebounceWindow,
		policy:    opts.Policy,
		clock:     opts.Clock,
		notifier:  opts.Notifier,
		events:    opts.Events,
		log:       opts.Logger,
		pending:   make(map[progressKey]*pendingWrite),
		cache:     make(map[progressKey]*models.ProgressRecord),
		completed: make(map[progressKey]struct{}),
	}
}

// Report records one progress tick. It never waits on the store. The first
// completion for a key is written right away; later ticks, completed or not,
// go through the debounce window.
func (t *ProgressTracker) Report(u models.ProgressUpdate) {
	if !u.Completed && t.policy.IsComplete(RatioFromPercentage(u.ProgressPercentage)) {
		u.Completed = true
	}
	key := progressKey{userID: u.UserID, lessonID: u.LessonID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.log.Warn("progress report after shutdown dropped",
			zap.String("user_id", u.UserID.String()),
			zap.String("lesson_id", u.LessonID.String()),
		)
		return
	}

	if prev, ok := t.pending[key]; ok {
		prev.timer.Stop()
		delete(t.pending, key)
	}

	_, alreadyCompleted := t.completed[key]
	if u.Completed && !alreadyCompleted {
		t.completed[key] = struct{}{}
		t.inflight.Add(1)
		t.mu.Unlock()
		go func() {
			defer t.inflight.Done()
			t.write(context.Background(), u)
		}()
		return
	}

	t.gen++
	gen := t.gen
	pw := &pendingWrite{gen: gen, update: u}
	pw.timer = t.clock.AfterFunc(t.window, func() { t.fire(key, gen) })
	t.pending[key] = pw
	t.mu.Unlock()
}

// fire runs when a debounce timer expires. A callback whose entry was replaced
// or cancelled after it started does nothing.
func (t *ProgressTracker) fire(key progressKey, gen uint64) {
	t.mu.Lock()
	pw, ok := t.pending[key]
	if !ok || pw.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.pending, key)
	t.inflight.Add(1)
	t.mu.Unlock()

	defer t.inflight.Done()
	t.write(context.Background(), pw.update)
}

func (t *ProgressTracker) write(ctx context.Context, u models.ProgressUpdate) {
	log := t.log.With(
		zap.String("user_id", u.UserID.String()),
		zap.String("lesson_id", u.LessonID.String()),
	)

	rec, err := t.store.Upsert(ctx, u)
	if err != nil {
		log.Warn("progress write failed", zap.Bool("completed", u.Completed), zap.Error(err))
		if u.Completed {
			t.mu.Lock()
			delete(t.completed, progressKey{userID: u.UserID, lessonID: u.LessonID})
			t.mu.Unlock()
		}
		if t.notifier != nil {
			t.notifier.ProgressSaveFailed(ctx, u.UserID, u.LessonID, &StoreError{Op: "upsert progress", Err: err})
		}
		return
	}

	t.mu.Lock()
	key := progressKey{userID: u.UserID, lessonID: u.LessonID}
	cached := *rec
	t.cache[key] = &cached
	t.mu.Unlock()

	log.Debug("progress written",
		zap.Float64("progress_percentage", rec.ProgressPercentage),
		zap.Bool("completed", rec.Completed),
	)

	if t.notifier != nil {
		t.notifier.ProgressSaved(ctx, rec)
	}
	if u.Completed {
		t.events.Publish(events.SubjectProgressCompleted, "lesson_completed", u.UserID.String(), map[string]any{
			"lesson_id": u.LessonID.String(),
			"course_id": u.CourseID.String(),
		})
	}
}

// Get returns progress for the given lessons, preferring values this tracker
// wrote itself. Misses go to the store and are not cached.
func (t *ProgressTracker) Get(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*models.ProgressRecord, error) {
	out := make([]*models.ProgressRecord, 0, len(lessonIDs))
	var misses []uuid.UUID

	t.mu.Lock()
	for _, id := range lessonIDs {
		if rec, ok := t.cache[progressKey{userID: userID, lessonID: id}]; ok {
			cp := *rec
			out = append(out, &cp)
			continue
		}
		misses = append(misses, id)
	}
	t.mu.Unlock()

	if len(misses) == 0 {
		return out, nil
	}

	stored, err := t.store.QueryByUserAndLessons(ctx, userID, misses)
	if err != nil {
		return nil, &StoreError{Op: "query progress", Err: err}
	}
	return append(out, stored...), nil
}

// PruneCache drops cached records last watched more than maxAge ago and
// returns how many were removed.
func (t *ProgressTracker) PruneCache(maxAge time.Duration) int {
	cutoff := t.clock.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, rec := range t.cache {
		if rec.LastWatchedAt.Before(cutoff) {
			delete(t.cache, key)
			delete(t.completed, key)
			removed++
		}
	}
	return removed
}

// Pending reports how many lessons have a debounced write waiting.
func (t *ProgressTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Shutdown cancels every debounce timer, writes the payloads they held and
// waits for in-flight writes. Reports after Shutdown are dropped.
func (t *ProgressTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	flush := make([]models.ProgressUpdate, 0, len(t.pending))
	for key, pw := range t.pending {
		pw.timer.Stop()
		flush = append(flush, pw.update)
		delete(t.pending, key)
	}
	t.mu.Unlock()

	for _, u := range flush {
		t.write(ctx, u)
	}

	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
