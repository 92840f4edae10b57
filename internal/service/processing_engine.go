package service

import (
	"container/heap"
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fraudlens-api/internal/models"
	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

// QueuedLabel is shown on batch items waiting for their staggered start.
const QueuedLabel = "Queued for processing"

// ProcessingStageLabels is the fixed label progression of a simulated review.
var ProcessingStageLabels = [...]string{
	"Analyzing documents",
	"Verifying applicant identity",
	"Cross-checking financial records",
	"Generating risk assessment",
}

// Scorer draws the risk score of an application completing review.
// Implementations must return a value in [0,100).
type Scorer interface {
	Score(app models.Application) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(app models.Application) int

// Score implements Scorer.
func (f ScorerFunc) Score(app models.Application) int { return f(app) }

// RandomScorer draws uniform scores; it stands in for a real fraud model.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer seeds a scorer. A zero seed uses the current time.
func NewRandomScorer(seed int64) *RandomScorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomScorer{rng: rand.New(rand.NewSource(seed))}
}

// Score implements Scorer.
func (s *RandomScorer) Score(models.Application) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(100)
}

// OutcomeSink receives applications that reached a terminal state.
type OutcomeSink interface {
	Record(app models.Application, source models.OutcomeSource)
}

// ProcessingEngineConfig tunes the simulated review pipeline.
type ProcessingEngineConfig struct {
	StageInterval   time.Duration
	CompletionDelay time.Duration
	BatchStagger    time.Duration
	BulkGrace       time.Duration
	TickInterval    time.Duration
	Scorer          Scorer
	Sink            OutcomeSink
	Metrics         *MetricsService
	Logger          *zap.Logger
	Now             func() time.Time
}

type eventKind int

const (
	eventStage eventKind = iota
	eventComplete
	eventBulkReset
)

type pendingEvent struct {
	dueAt time.Time
	seq   uint64
	kind  eventKind
	appID string
	task  uint64
	step  int
	batch uint64
	last  bool
}

type eventHeap []*pendingEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].dueAt.Equal(h[j].dueAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].dueAt.Before(h[j].dueAt)
}
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*pendingEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// ProcessingEngine owns the queue and processed collections. It is the single
// writer: every mutation replaces whole slices and bumps the version.
type ProcessingEngine struct {
	mu sync.Mutex

	queue     []models.Application
	processed []models.Application
	bulk      bool
	bulkState models.BulkProcessingStatus
	version   uint64
	epoch     string

	events   eventHeap
	seq      uint64
	tasks    map[string]uint64
	nextTask uint64
	batchID  uint64

	stageInterval   time.Duration
	completionDelay time.Duration
	batchStagger    time.Duration
	bulkGrace       time.Duration
	tick            time.Duration

	scorer  Scorer
	sink    OutcomeSink
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewProcessingEngine constructs an empty engine.
func NewProcessingEngine(cfg ProcessingEngineConfig) *ProcessingEngine {
	if cfg.StageInterval <= 0 {
		cfg.StageInterval = 2 * time.Second
	}
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = 10 * time.Second
	}
	lastStage := time.Duration(len(ProcessingStageLabels)-1) * cfg.StageInterval
	if cfg.CompletionDelay <= lastStage {
		cfg.CompletionDelay = lastStage + cfg.StageInterval
	}
	if cfg.BatchStagger <= 0 {
		cfg.BatchStagger = 3 * time.Second
	}
	if cfg.BulkGrace < 0 {
		cfg.BulkGrace = 0
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	if cfg.Scorer == nil {
		cfg.Scorer = NewRandomScorer(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ProcessingEngine{
		queue:           []models.Application{},
		processed:       []models.Application{},
		epoch:           uuid.NewString(),
		tasks:           make(map[string]uint64),
		stageInterval:   cfg.StageInterval,
		completionDelay: cfg.CompletionDelay,
		batchStagger:    cfg.BatchStagger,
		bulkGrace:       cfg.BulkGrace,
		tick:            cfg.TickInterval,
		scorer:          cfg.Scorer,
		sink:            cfg.Sink,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
}

// SetOutcomeSink attaches the completion hook. Call before Run.
func (e *ProcessingEngine) SetOutcomeSink(sink OutcomeSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Run advances scheduled transitions on every tick until ctx is cancelled.
func (e *ProcessingEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Advance(e.now())
		}
	}
}

// Load replaces both collections and abandons every scheduled transition.
func (e *ProcessingEngine) Load(queue, processed []models.Application) {
	nextQueue := make([]models.Application, 0, len(queue))
	for _, app := range queue {
		app.AIProcessing = false
		app.ProcessingStage = nil
		nextQueue = append(nextQueue, app)
	}
	nextProcessed := make([]models.Application, 0, len(processed))
	for _, app := range processed {
		app.AIProcessing = false
		app.ProcessingStage = nil
		nextProcessed = append(nextProcessed, app)
	}
	sortByUpdatedDesc(nextProcessed)

	e.mu.Lock()
	e.queue = nextQueue
	e.processed = nextProcessed
	e.events = nil
	e.tasks = make(map[string]uint64)
	e.bulk = false
	e.bulkState = models.BulkProcessingStatus{}
	e.batchID++
	e.version++
	e.publishGaugesLocked()
	e.mu.Unlock()

	e.logger.Info("applications loaded", zap.Int("queue", len(nextQueue)), zap.Int("processed", len(nextProcessed)))
}

// Snapshot returns a read-only copy of the engine state.
func (e *ProcessingEngine) Snapshot() models.QueueSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.QueueSnapshot{
		Queue:                append([]models.Application{}, e.queue...),
		Processed:            append([]models.Application{}, e.processed...),
		IsBulkProcessing:     e.bulk,
		BulkProcessingStatus: e.bulkState,
		Version:              e.version,
		Epoch:                e.epoch,
	}
}

// Version returns the current state version.
func (e *ProcessingEngine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Pending reports how many transitions are scheduled.
func (e *ProcessingEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

// ProcessOne starts a simulated review of a queued application. It reports
// false and changes nothing when the id is not queued or already in flight.
// An active batch run does not block it.
func (e *ProcessingEngine) ProcessOne(id string) bool {
	now := e.now()

	e.mu.Lock()
	idx := indexOf(e.queue, id)
	if idx < 0 || e.queue[idx].AIProcessing {
		e.mu.Unlock()
		return false
	}
	task := e.newTaskLocked(id)
	e.queue = replaceAt(e.queue, idx, func(app *models.Application) {
		app.Status = models.StatusProcessing
		app.AIProcessing = true
		app.ProcessingStage = stringPtr(ProcessingStageLabels[0])
	})
	e.version++
	e.scheduleStagesLocked(id, task, now, 0, false)
	e.publishGaugesLocked()
	e.mu.Unlock()

	e.logger.Debug("processing started", zap.String("application_id", id))
	return true
}

// ProcessBatch starts a staggered review of every idle queued application.
// It reports false when the queue has nothing idle or a batch is in flight.
func (e *ProcessingEngine) ProcessBatch() bool {
	now := e.now()

	e.mu.Lock()
	if e.bulk || len(e.queue) == 0 {
		e.mu.Unlock()
		return false
	}
	ids := make([]string, 0, len(e.queue))
	for _, app := range e.queue {
		if !app.AIProcessing {
			ids = append(ids, app.ID)
		}
	}
	if len(ids) == 0 {
		e.mu.Unlock()
		return false
	}

	e.batchID++
	batch := e.batchID
	next := make([]models.Application, len(e.queue))
	copy(next, e.queue)
	for i := range next {
		if next[i].AIProcessing {
			continue
		}
		next[i].Status = models.StatusProcessing
		next[i].AIProcessing = true
		next[i].ProcessingStage = stringPtr(QueuedLabel)
	}
	e.queue = next
	e.bulk = true
	e.bulkState = models.BulkProcessingStatus{Processed: 0, Total: len(ids)}

	for i, id := range ids {
		task := e.newTaskLocked(id)
		start := now.Add(time.Duration(i) * e.batchStagger)
		e.scheduleStagesLocked(id, task, start, batch, i == len(ids)-1)
	}
	e.version++
	e.publishGaugesLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordBatchStart()
	}
	e.logger.Info("batch processing started", zap.Int("total", len(ids)))
	return true
}

// Decide records a manual review decision on a processed application.
func (e *ProcessingEngine) Decide(id string, status models.ApplicationStatus) (models.Application, error) {
	if !status.IsDecision() {
		return models.Application{}, appErrors.Clone(appErrors.ErrValidation, "unsupported decision status")
	}
	now := e.now()

	e.mu.Lock()
	if indexOf(e.queue, id) >= 0 {
		e.mu.Unlock()
		return models.Application{}, appErrors.Clone(appErrors.ErrConflict, "application is still in the review queue")
	}
	idx := indexOf(e.processed, id)
	if idx < 0 {
		e.mu.Unlock()
		return models.Application{}, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	app := e.processed[idx]
	app.Status = status
	app.UpdatedAt = now
	next := make([]models.Application, 0, len(e.processed))
	next = append(next, e.processed[:idx]...)
	next = append(next, e.processed[idx+1:]...)
	next = append(next, app)
	sortByUpdatedDesc(next)
	e.processed = next
	e.version++
	sink := e.sink
	e.mu.Unlock()

	if sink != nil {
		sink.Record(app, models.OutcomeSourceDecision)
	}
	e.logger.Info("decision recorded", zap.String("application_id", id), zap.String("status", string(status)))
	return app, nil
}

// Advance fires every transition due at or before now, in due order.
func (e *ProcessingEngine) Advance(now time.Time) int {
	e.mu.Lock()
	fired := 0
	var completed []models.Application
	for len(e.events) > 0 && !e.events[0].dueAt.After(now) {
		ev := heap.Pop(&e.events).(*pendingEvent)
		switch ev.kind {
		case eventStage:
			if e.applyStageLocked(ev) {
				fired++
			}
		case eventComplete:
			if app, ok := e.completeLocked(ev); ok {
				completed = append(completed, app)
				fired++
			}
		case eventBulkReset:
			if e.bulk && ev.batch == e.batchID {
				e.bulk = false
				e.version++
				fired++
			}
		}
	}
	if fired > 0 {
		e.publishGaugesLocked()
	}
	sink := e.sink
	e.mu.Unlock()

	for _, app := range completed {
		if e.metrics != nil && app.RiskScore != nil {
			e.metrics.RecordCompletion(models.TierForScore(*app.RiskScore))
		}
		if sink != nil {
			sink.Record(app, models.OutcomeSourcePipeline)
		}
		e.logger.Debug("processing completed",
			zap.String("application_id", app.ID),
			zap.String("status", string(app.Status)),
			zap.Intp("risk_score", app.RiskScore),
		)
	}
	return fired
}

func (e *ProcessingEngine) newTaskLocked(id string) uint64 {
	e.nextTask++
	e.tasks[id] = e.nextTask
	return e.nextTask
}

func (e *ProcessingEngine) scheduleStagesLocked(id string, task uint64, start time.Time, batch uint64, last bool) {
	for step := range ProcessingStageLabels {
		// The single-item path applies the first label synchronously.
		if step == 0 && batch == 0 {
			continue
		}
		e.pushLocked(&pendingEvent{
			dueAt: start.Add(time.Duration(step) * e.stageInterval),
			kind:  eventStage,
			appID: id,
			task:  task,
			step:  step,
			batch: batch,
		})
	}
	e.pushLocked(&pendingEvent{
		dueAt: start.Add(e.completionDelay),
		kind:  eventComplete,
		appID: id,
		task:  task,
		batch: batch,
		last:  last,
	})
}

func (e *ProcessingEngine) pushLocked(ev *pendingEvent) {
	e.seq++
	ev.seq = e.seq
	heap.Push(&e.events, ev)
}

// liveLocked reports the queue index of the item an event targets, or -1 when
// the event has been abandoned.
func (e *ProcessingEngine) liveLocked(ev *pendingEvent) int {
	if e.tasks[ev.appID] != ev.task {
		return -1
	}
	idx := indexOf(e.queue, ev.appID)
	if idx < 0 || !e.queue[idx].AIProcessing {
		return -1
	}
	return idx
}

func (e *ProcessingEngine) applyStageLocked(ev *pendingEvent) bool {
	idx := e.liveLocked(ev)
	if idx < 0 {
		return false
	}
	e.queue = replaceAt(e.queue, idx, func(app *models.Application) {
		app.ProcessingStage = stringPtr(ProcessingStageLabels[ev.step])
	})
	e.version++
	return true
}

func (e *ProcessingEngine) completeLocked(ev *pendingEvent) (models.Application, bool) {
	idx := e.liveLocked(ev)
	if idx < 0 {
		return models.Application{}, false
	}
	app := e.queue[idx]
	score := clampScore(e.scorer.Score(app))
	tier := models.TierForScore(score)

	app.RiskScore = &score
	app.Flags = models.FlagsForTier(tier)
	app.Status = models.StatusApproved
	if tier == models.RiskHigh {
		app.Status = models.StatusEscalated
	}
	app.Timestamp = ev.dueAt
	app.UpdatedAt = ev.dueAt
	app.AIProcessing = false
	app.ProcessingStage = nil

	nextQueue := make([]models.Application, 0, len(e.queue)-1)
	nextQueue = append(nextQueue, e.queue[:idx]...)
	nextQueue = append(nextQueue, e.queue[idx+1:]...)
	nextProcessed := make([]models.Application, 0, len(e.processed)+1)
	nextProcessed = append(nextProcessed, e.processed...)
	nextProcessed = append(nextProcessed, app)
	sortByUpdatedDesc(nextProcessed)

	e.queue = nextQueue
	e.processed = nextProcessed
	delete(e.tasks, ev.appID)

	if ev.batch != 0 && ev.batch == e.batchID && e.bulk {
		e.bulkState.Processed++
		if ev.last {
			e.pushLocked(&pendingEvent{
				dueAt: ev.dueAt.Add(e.bulkGrace),
				kind:  eventBulkReset,
				batch: ev.batch,
			})
		}
	}
	e.version++
	return app, true
}

func (e *ProcessingEngine) publishGaugesLocked() {
	if e.metrics == nil {
		return
	}
	e.metrics.SetQueueGauges(len(e.queue), len(e.tasks))
}

func indexOf(apps []models.Application, id string) int {
	for i := range apps {
		if apps[i].ID == id {
			return i
		}
	}
	return -1
}

// replaceAt returns a copy of apps with the element at idx modified.
func replaceAt(apps []models.Application, idx int, mutate func(*models.Application)) []models.Application {
	next := make([]models.Application, len(apps))
	copy(next, apps)
	mutate(&next[idx])
	return next
}

// sortByUpdatedDesc orders by updatedAt descending; ties keep insertion order.
func sortByUpdatedDesc(apps []models.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].UpdatedAt.After(apps[j].UpdatedAt)
	})
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 99 {
		return 99
	}
	return score
}

func stringPtr(v string) *string { return &v }
