package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/models"
)

// job is the shared per-identifier fetch unit. The fetch runs at most once
// and its SharedCompletion is awaited by every variant pipeline under it.
type job struct {
	key     string
	fetch   *SharedCompletion[*interfaces.FetchedMedia]
	subjobs map[string]*subjob
}

// subjob is the per-(identifier, variant) transform+publish unit. Its mutex
// serializes "compute next snapshot -> store as current -> broadcast" so two
// racing transitions can never be observed out of order by a subscriber.
type subjob struct {
	identifier string
	variant    string

	mu          sync.Mutex
	subscribers map[string]interfaces.Connection
	current     *models.StatusSnapshot
	cancel      context.CancelFunc
	running     bool
	terminalAt  time.Time
}

func newSubjob(identifier, variant string) *subjob {
	return &subjob{
		identifier:  identifier,
		variant:     variant,
		subscribers: make(map[string]interfaces.Connection),
	}
}

// Registry orchestrates jobs and subjobs. The structural mutex guards only
// the job and subjob maps; mutations under it are O(1) and non-blocking. All
// potentially slow work (fetch, transform, publish, broadcast I/O) happens on
// background tasks after the lock is released, throttled by a bounded worker
// semaphore so one slow media operation never stalls dispatch for others.
type Registry struct {
	fetcher     interfaces.Fetcher
	transformer interfaces.Transformer
	publisher   interfaces.Publisher
	broadcaster interfaces.Broadcaster
	logger      arbor.ILogger

	mu   sync.Mutex
	jobs map[string]*job

	ctx     context.Context
	cancel  context.CancelFunc
	workers chan struct{}
	wg      sync.WaitGroup
}

// NewRegistry creates a registry whose background tasks stop when ctx is
// cancelled. workers bounds the number of concurrent external media calls.
func NewRegistry(ctx context.Context, fetcher interfaces.Fetcher, transformer interfaces.Transformer, publisher interfaces.Publisher, broadcaster interfaces.Broadcaster, workers int, logger arbor.ILogger) *Registry {
	if workers < 1 {
		workers = 1
	}
	rctx, cancel := context.WithCancel(ctx)
	return &Registry{
		fetcher:     fetcher,
		transformer: transformer,
		publisher:   publisher,
		broadcaster: broadcaster,
		logger:      logger,
		jobs:        make(map[string]*job),
		ctx:         rctx,
		cancel:      cancel,
		workers:     make(chan struct{}, workers),
	}
}

// Close cancels every in-flight task and waits for the pipelines to publish
// their terminal snapshots and exit.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}

// Init attaches conn as a subscriber of the subjob for (identifier, variant),
// creating the job and/or subjob as needed and starting background work when
// this is the first subscriber of a never-run or previously cancelled
// pipeline. It returns true when new work was started; false means the caller
// should send the subjob's current snapshot to this connection instead.
func (r *Registry) Init(identifier, variant string, conn interfaces.Connection) bool {
	r.mu.Lock()

	j, ok := r.jobs[identifier]
	if !ok {
		j = &job{
			key:     identifier,
			fetch:   NewSharedCompletion[*interfaces.FetchedMedia](),
			subjobs: make(map[string]*subjob),
		}
		r.jobs[identifier] = j

		sj := newSubjob(identifier, variant)
		sj.subscribers[conn.ID()] = conn
		j.subjobs[variant] = sj

		pctx, cancel := context.WithCancel(r.ctx)
		sj.cancel = cancel
		sj.running = true
		r.mu.Unlock()

		r.logger.Info().Str("identifier", identifier).Str("variant", variant).Msg("Job created, starting fetch")
		r.startFetch(j)
		r.startPipeline(pctx, j, sj)
		return true
	}

	sj, ok := j.subjobs[variant]
	if !ok {
		sj = newSubjob(identifier, variant)
		sj.subscribers[conn.ID()] = conn
		j.subjobs[variant] = sj

		if _, err := j.fetch.Result(); j.fetch.IsDone() && err != nil {
			// The shared fetch already failed; a pipeline awaiting it would
			// never produce output. Store the terminal snapshot so the
			// caller surfaces the failure instead of silently retrying.
			sj.current = r.terminalSnapshot(identifier, variant, err)
			sj.terminalAt = time.Now()
			r.mu.Unlock()
			return false
		}

		pctx, cancel := context.WithCancel(r.ctx)
		sj.cancel = cancel
		sj.running = true
		r.mu.Unlock()

		r.logger.Info().Str("identifier", identifier).Str("variant", variant).Msg("Subjob created, sharing existing fetch")
		r.startPipeline(pctx, j, sj)
		return true
	}
	r.mu.Unlock()

	sj.mu.Lock()
	sj.subscribers[conn.ID()] = conn

	if sj.running || sj.current == nil || !sj.current.Terminal() || !sj.current.Cancelled {
		// Already running or already done: the latest snapshot, not new
		// work, is the right thing for this late subscriber.
		sj.mu.Unlock()
		return false
	}

	// Last run was cancelled; resume with a fresh pipeline task.
	if _, err := j.fetch.Result(); j.fetch.IsDone() && err != nil {
		sj.current = r.terminalSnapshot(identifier, variant, err)
		sj.terminalAt = time.Now()
		sj.mu.Unlock()
		return false
	}

	pctx, cancel := context.WithCancel(r.ctx)
	sj.cancel = cancel
	sj.running = true
	sj.current = nil
	sj.mu.Unlock()

	r.logger.Info().Str("identifier", identifier).Str("variant", variant).Msg("Resuming cancelled subjob")
	r.startPipeline(pctx, j, sj)
	return true
}

// Cancel stops the subjob's pipeline if conn is its last subscriber. With
// other subscribers still attached it is a no-op: they still want the result.
// The shared fetch is never cancelled here; other variants of the same
// identifier may depend on it.
func (r *Registry) Cancel(identifier, variant string, conn interfaces.Connection) {
	r.mu.Lock()
	j, ok := r.jobs[identifier]
	if !ok {
		r.mu.Unlock()
		return
	}
	sj, ok := j.subjobs[variant]
	r.mu.Unlock()
	if !ok {
		return
	}

	sj.mu.Lock()
	defer sj.mu.Unlock()

	if _, subscribed := sj.subscribers[conn.ID()]; !subscribed {
		return
	}
	if len(sj.subscribers) > 1 {
		return
	}
	if sj.running && sj.cancel != nil {
		r.logger.Info().Str("identifier", identifier).Str("variant", variant).Msg("Last subscriber cancelled, stopping pipeline")
		sj.cancel()
	}
}

// Snapshot returns the current snapshot for (identifier, variant), or nil if
// the pair is unknown or nothing has been published yet.
func (r *Registry) Snapshot(identifier, variant string) *models.StatusSnapshot {
	r.mu.Lock()
	j, ok := r.jobs[identifier]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	sj, ok := j.subjobs[variant]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	sj.mu.Lock()
	defer sj.mu.Unlock()
	return sj.current
}

// Snapshots returns the current snapshot of every tracked subjob.
func (r *Registry) Snapshots() []*models.StatusSnapshot {
	r.mu.Lock()
	subjobs := make([]*subjob, 0)
	for _, j := range r.jobs {
		for _, sj := range j.subjobs {
			subjobs = append(subjobs, sj)
		}
	}
	r.mu.Unlock()

	out := make([]*models.StatusSnapshot, 0, len(subjobs))
	for _, sj := range subjobs {
		sj.mu.Lock()
		if sj.current != nil {
			out = append(out, sj.current)
		}
		sj.mu.Unlock()
	}
	return out
}

// DropConnection removes conn from every subscriber set it belongs to and
// cancels any subjob for which it was the last subscriber. Called by the
// transport layer when a connection fails or disconnects.
func (r *Registry) DropConnection(conn interfaces.Connection) {
	r.mu.Lock()
	subjobs := make([]*subjob, 0)
	for _, j := range r.jobs {
		for _, sj := range j.subjobs {
			subjobs = append(subjobs, sj)
		}
	}
	r.mu.Unlock()

	for _, sj := range subjobs {
		sj.mu.Lock()
		if _, subscribed := sj.subscribers[conn.ID()]; subscribed {
			delete(sj.subscribers, conn.ID())
			if len(sj.subscribers) == 0 && sj.running && sj.cancel != nil {
				r.logger.Debug().Str("identifier", sj.identifier).Str("variant", sj.variant).Msg("Last subscriber disconnected, stopping pipeline")
				sj.cancel()
			}
		}
		sj.mu.Unlock()
	}
}

// startFetch runs the external fetch once for a job. On failure every subjob
// of the job is notified here, since none of them can proceed; their pipeline
// tasks then exit without a broadcast of their own.
func (r *Registry) startFetch(j *job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if err := r.acquireWorker(r.ctx); err != nil {
			j.fetch.Complete(nil, err)
			r.failJob(j, err)
			return
		}
		media, err := r.fetcher.Fetch(r.ctx, j.key)
		r.releaseWorker()

		if err != nil {
			r.logger.Warn().Err(err).Str("identifier", j.key).Msg("Fetch failed")
			j.fetch.Complete(nil, err)
			r.failJob(j, err)
			return
		}
		r.logger.Debug().Str("identifier", j.key).Str("title", media.Title).Msg("Fetch complete")
		j.fetch.Complete(media, nil)
	}()
}

// failJob broadcasts the fetch failure as a terminal snapshot to every subjob
// of the job, exactly once each.
func (r *Registry) failJob(j *job, err error) {
	r.mu.Lock()
	subjobs := make([]*subjob, 0, len(j.subjobs))
	for _, sj := range j.subjobs {
		subjobs = append(subjobs, sj)
	}
	r.mu.Unlock()

	for _, sj := range subjobs {
		r.publish(sj, r.terminalSnapshot(sj.identifier, sj.variant, err))
	}
}

// terminalSnapshot maps a stage error to its terminal snapshot:
// cancellation becomes DONE(cancelled), anything else DONE(failed).
func (r *Registry) terminalSnapshot(identifier, variant string, err error) *models.StatusSnapshot {
	var snap *models.StatusSnapshot
	var buildErr error
	if errors.Is(err, context.Canceled) {
		snap, buildErr = models.NewCancelledSnapshot(identifier, variant)
	} else {
		snap, buildErr = models.NewFailedSnapshot(identifier, variant)
	}
	if buildErr != nil {
		r.logger.Error().Err(buildErr).Str("identifier", identifier).Str("variant", variant).Msg("Snapshot construction failed")
	}
	return snap
}

// startPipeline runs the transform+publish stages for one subjob, awaiting
// the shared fetch first and broadcasting a snapshot after every transition.
func (r *Registry) startPipeline(ctx context.Context, j *job, sj *subjob) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if snap, err := models.NewStartedSnapshot(sj.identifier, sj.variant); err == nil {
			r.publish(sj, snap)
		}
		if !j.fetch.IsDone() {
			if snap, err := models.NewProgressSnapshot(sj.identifier, sj.variant, models.StageFetching, nil); err == nil {
				r.publish(sj, snap)
			}
		}

		media, err := j.fetch.Wait(ctx)
		if err != nil {
			if _, fetchErr := j.fetch.Result(); j.fetch.IsDone() && fetchErr != nil {
				// The fetch stage failed; its task already notified this
				// subjob as part of the job-wide broadcast.
				r.endRun(sj)
				return
			}
			r.terminate(sj, err)
			return
		}

		if snap, buildErr := models.NewProgressSnapshot(sj.identifier, sj.variant, models.StageTransforming, nil); buildErr == nil {
			r.publish(sj, snap)
		}
		transformed, err := r.applyTransform(ctx, media, sj.variant)
		if err != nil {
			r.logger.Warn().Err(err).Str("identifier", sj.identifier).Str("variant", sj.variant).Msg("Transform failed")
			r.terminate(sj, err)
			return
		}
		if snap, buildErr := models.NewProgressSnapshot(sj.identifier, sj.variant, models.StageTransforming, models.Percent(100)); buildErr == nil {
			r.publish(sj, snap)
		}

		if snap, buildErr := models.NewProgressSnapshot(sj.identifier, sj.variant, models.StagePublishing, nil); buildErr == nil {
			r.publish(sj, snap)
		}
		reference, err := r.applyPublish(ctx, transformed)
		if err != nil {
			r.logger.Warn().Err(err).Str("identifier", sj.identifier).Str("variant", sj.variant).Msg("Publish failed")
			r.terminate(sj, err)
			return
		}

		if snap, buildErr := models.NewDoneSnapshot(sj.identifier, sj.variant, reference); buildErr == nil {
			r.publish(sj, snap)
		}
		r.logger.Info().Str("identifier", sj.identifier).Str("variant", sj.variant).Str("reference", reference).Msg("Pipeline complete")
	}()
}

func (r *Registry) applyTransform(ctx context.Context, media *interfaces.FetchedMedia, variant string) (*interfaces.TransformedMedia, error) {
	if err := r.acquireWorker(ctx); err != nil {
		return nil, err
	}
	defer r.releaseWorker()
	return r.transformer.Apply(ctx, media, variant)
}

func (r *Registry) applyPublish(ctx context.Context, media *interfaces.TransformedMedia) (string, error) {
	if err := r.acquireWorker(ctx); err != nil {
		return "", err
	}
	defer r.releaseWorker()
	return r.publisher.Publish(ctx, media)
}

// terminate publishes the terminal snapshot for a pipeline error:
// cancellation becomes DONE(cancelled), anything else DONE(failed).
func (r *Registry) terminate(sj *subjob, err error) {
	r.publish(sj, r.terminalSnapshot(sj.identifier, sj.variant, err))
}

// publish stores snap as the subjob's current snapshot and broadcasts it to
// the subscriber set, all under the subjob mutex so subscribers observe
// transitions in publication order. A terminal snapshot is final: once one is
// stored, later publishes are dropped, which keeps terminal fan-out
// exactly-once even when the fetch task and a pipeline task race.
func (r *Registry) publish(sj *subjob, snap *models.StatusSnapshot) bool {
	if snap == nil {
		return false
	}
	sj.mu.Lock()
	defer sj.mu.Unlock()

	if sj.current != nil && sj.current.Terminal() {
		return false
	}
	sj.current = snap
	if snap.Terminal() {
		sj.running = false
		sj.terminalAt = time.Now()
	}

	conns := make([]interfaces.Connection, 0, len(sj.subscribers))
	for _, c := range sj.subscribers {
		conns = append(conns, c)
	}
	r.broadcaster.Broadcast(conns, models.NewStatusMessage(snap))
	return true
}

// endRun marks the pipeline stopped without publishing. Used when the fetch
// task already delivered the terminal snapshot for this subjob.
func (r *Registry) endRun(sj *subjob) {
	sj.mu.Lock()
	sj.running = false
	if sj.current != nil && sj.current.Terminal() && sj.terminalAt.IsZero() {
		sj.terminalAt = time.Now()
	}
	sj.mu.Unlock()
}

// acquireWorker takes a slot from the bounded worker pool that throttles
// external fetch/transform/publish calls.
func (r *Registry) acquireWorker(ctx context.Context) error {
	select {
	case r.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseWorker() {
	<-r.workers
}

// Evict removes subjobs that have been terminal with no subscribers for
// longer than retain, and jobs left with no subjobs and a settled fetch.
// Returns the number of subjobs removed.
func (r *Registry) Evict(retain time.Duration) int {
	cutoff := time.Now().Add(-retain)
	removed := 0

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, j := range r.jobs {
		for variant, sj := range j.subjobs {
			sj.mu.Lock()
			expired := sj.current != nil && sj.current.Terminal() && !sj.running &&
				len(sj.subscribers) == 0 && !sj.terminalAt.IsZero() && sj.terminalAt.Before(cutoff)
			sj.mu.Unlock()
			if expired {
				delete(j.subjobs, variant)
				removed++
			}
		}
		if len(j.subjobs) == 0 && j.fetch.IsDone() {
			delete(r.jobs, key)
		}
	}

	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("Evicted terminal subjobs")
	}
	return removed
}
