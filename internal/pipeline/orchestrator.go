package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/state"
	"clipforge/internal/transcript"
)

// Orchestrator drives a pipeline run end to end.
type Orchestrator struct {
	cfg      *config.Config
	store    *state.Store
	logger   *slog.Logger
	resolver media.Resolver
	engine   transcript.Engine
	encoder  render.Encoder
	analyzer Analyzer
	events   Publisher
}

// Option customizes an Orchestrator, mainly so tests can substitute the
// external collaborators.
type Option func(*Orchestrator)

// WithResolver replaces the source resolver.
func WithResolver(r media.Resolver) Option { return func(o *Orchestrator) { o.resolver = r } }

// WithEngine replaces the transcription engine.
func WithEngine(e transcript.Engine) Option { return func(o *Orchestrator) { o.engine = e } }

// WithEncoder replaces the clip encoder.
func WithEncoder(e render.Encoder) Option { return func(o *Orchestrator) { o.encoder = e } }

// WithAnalyzer replaces the audio analyzer.
func WithAnalyzer(a Analyzer) Option { return func(o *Orchestrator) { o.analyzer = a } }

// WithPublisher attaches a progress event publisher.
func WithPublisher(p Publisher) Option { return func(o *Orchestrator) { o.events = p } }

// New wires an orchestrator with production collaborators.
func New(cfg *config.Config, store *state.Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		resolver: media.LocalResolver{FFprobeBinary: cfg.FFprobeBinary()},
		engine: transcript.WhisperCLI{
			Binary:   cfg.Transcript.Binary,
			Model:    cfg.Transcript.Model,
			Language: cfg.Transcript.Language,
		},
		encoder: render.FFmpegEncoder{
			FFmpegBinary:  cfg.FFmpegBinary(),
			FFprobeBinary: cfg.FFprobeBinary(),
			Options:       cfg.Render,
		},
		events: noopPublisher{},
	}
	o.analyzer = &ffmpegAnalyzer{cfg: cfg, logger: o.logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runContext carries per-run state between stages.
type runContext struct {
	run state.Run
	src media.Source
	dir string
}

// RunAll executes every stage in order and returns the final manifest.
func (o *Orchestrator) RunAll(ctx context.Context, ref string) (state.Manifest, error) {
	rc, unlock, err := o.prepareRun(ctx, ref)
	if err != nil {
		return state.Manifest{}, err
	}
	defer unlock()

	ctx = services.WithRunID(ctx, rc.run.ID)
	if err := o.store.UpdateRunStatus(ctx, rc.run.ID, state.StatusRunning, ""); err != nil {
		return state.Manifest{}, err
	}
	o.events.Publish(Event{Type: EventRunStarted, RunID: rc.run.ID, Message: rc.src.Path})

	for _, spec := range o.stages() {
		if err := o.executeStage(ctx, rc, spec); err != nil {
			o.failRun(ctx, rc, err)
			manifest, _ := o.exportManifest(context.WithoutCancel(ctx), rc)
			return manifest, err
		}
	}

	status, message := o.finalStatus(ctx, rc)
	if err := o.store.UpdateRunStatus(ctx, rc.run.ID, status, message); err != nil {
		return state.Manifest{}, err
	}
	o.events.Publish(Event{Type: EventRunFinished, RunID: rc.run.ID, Message: string(status)})

	return o.exportManifest(ctx, rc)
}

// RunStage executes a single named stage, requiring its upstream stages to
// have completed in a previous invocation.
func (o *Orchestrator) RunStage(ctx context.Context, ref, name string) (state.Manifest, error) {
	var spec stageSpec
	found := false
	for _, candidate := range o.stages() {
		if candidate.name == name {
			spec = candidate
			found = true
			break
		}
	}
	if !found {
		return state.Manifest{}, services.Wrap(services.ErrConfiguration, "", "run stage", fmt.Sprintf("unknown stage %q", name), nil)
	}

	rc, unlock, err := o.prepareRun(ctx, ref)
	if err != nil {
		return state.Manifest{}, err
	}
	defer unlock()
	ctx = services.WithRunID(ctx, rc.run.ID)

	for _, upstream := range o.stages() {
		if upstream.name == name {
			break
		}
		rec, ok, err := o.store.GetStage(ctx, rc.run.ID, upstream.name)
		if err != nil {
			return state.Manifest{}, err
		}
		if !ok || (rec.Status != state.StatusDone && rec.Status != state.StatusSkipped) {
			return state.Manifest{}, services.Wrap(services.ErrConfiguration, name, "run stage",
				fmt.Sprintf("stage %q has not completed for this source", upstream.name), nil)
		}
	}

	if err := o.executeStage(ctx, rc, spec); err != nil {
		o.failRun(ctx, rc, err)
		manifest, _ := o.exportManifest(context.WithoutCancel(ctx), rc)
		return manifest, err
	}
	return o.exportManifest(ctx, rc)
}

// Status returns the manifest for the run tracking the referenced source.
func (o *Orchestrator) Status(ctx context.Context, ref string) (state.Manifest, error) {
	src, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		return state.Manifest{}, err
	}
	run, found, err := o.store.FindRunBySource(ctx, src.Identity)
	if err != nil {
		return state.Manifest{}, err
	}
	if !found {
		return state.Manifest{}, fmt.Errorf("%w: no run for %s", state.ErrRunNotFound, src.Path)
	}
	return o.store.BuildManifest(ctx, run.ID)
}

// prepareRun resolves the source, finds or creates its run, and locks the
// run directory against concurrent writers.
func (o *Orchestrator) prepareRun(ctx context.Context, ref string) (*runContext, func(), error) {
	src, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	run, found, err := o.store.FindRunBySource(ctx, src.Identity)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		run = state.Run{
			ID:             uuid.NewString(),
			SourcePath:     src.Path,
			SourceIdentity: src.Identity,
			Dir:            filepath.Join(o.cfg.Paths.DataDir, fmt.Sprintf("%s-%s", src.Base(), src.Identity[:8])),
			Status:         state.StatusPending,
		}
		if err := o.store.CreateRun(ctx, run); err != nil {
			return nil, nil, err
		}
	}

	if err := os.MkdirAll(run.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create run directory: %w", err)
	}

	lock := flock.New(filepath.Join(run.Dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, nil, services.Wrap(services.ErrTransient, "", "lock run",
			fmt.Sprintf("another process is working on %s", run.Dir), nil)
	}

	rc := &runContext{run: run, src: src, dir: run.Dir}
	if err := writeJSON(filepath.Join(run.Dir, artifactSource), src); err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}
	return rc, func() { _ = lock.Unlock() }, nil
}

// executeStage runs one stage with fingerprint-based skip logic.
func (o *Orchestrator) executeStage(ctx context.Context, rc *runContext, spec stageSpec) error {
	ctx = services.WithStage(ctx, spec.name)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)

	fp, err := o.stageFingerprint(rc, spec)
	if err != nil {
		return services.Wrap(services.ErrTransient, spec.name, "fingerprint", "compute stage fingerprint", err)
	}

	rec, ok, err := o.store.GetStage(ctx, rc.run.ID, spec.name)
	if err != nil {
		return err
	}
	if ok && rec.Fingerprint == fp && (rec.Status == state.StatusDone || rec.Status == state.StatusSkipped) {
		if o.cacheIntact(ctx, rc, rec, spec) {
			rec.Status = state.StatusSkipped
			if err := o.store.UpsertStage(ctx, rec); err != nil {
				return err
			}
			logger.Info("stage skipped, cached result intact", logging.String("stage", spec.name))
			o.events.Publish(Event{Type: EventStageSkipped, RunID: rc.run.ID, Stage: spec.name})
			return nil
		}
		logger.Warn("cached artifact corrupt, recomputing",
			logging.String("stage", spec.name),
			logging.String("reason", services.ErrCacheCorruption.Error()))
	}

	started := time.Now().UTC()
	if err := o.store.UpsertStage(ctx, state.StageRecord{
		RunID: rc.run.ID, Name: spec.name, Status: state.StatusRunning,
		Fingerprint: fp, StartedAt: &started,
	}); err != nil {
		return err
	}
	o.events.Publish(Event{Type: EventStageStarted, RunID: rc.run.ID, Stage: spec.name})
	logger.Info("stage started", logging.String("stage", spec.name))

	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if spec.timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, spec.timeout)
	}
	runErr := spec.run(stageCtx, rc)
	cancel()

	finished := time.Now().UTC()
	if runErr != nil {
		status := state.StatusFailed
		if ctx.Err() != nil {
			status = state.StatusCancelled
		}
		// Terminal state must land even after cancellation.
		_ = o.store.UpsertStage(context.WithoutCancel(ctx), state.StageRecord{
			RunID: rc.run.ID, Name: spec.name, Status: status,
			Fingerprint: fp, ErrorMessage: runErr.Error(),
			StartedAt: &started, FinishedAt: &finished,
		})
		o.events.Publish(Event{Type: EventStageFailed, RunID: rc.run.ID, Stage: spec.name, Message: runErr.Error()})
		logger.Error("stage failed", logging.String("stage", spec.name), logging.Error(runErr))
		return runErr
	}

	record := state.StageRecord{
		RunID: rc.run.ID, Name: spec.name, Status: state.StatusDone,
		Fingerprint: fp, StartedAt: &started, FinishedAt: &finished,
	}
	if spec.artifact != "" {
		record.ArtifactPath = spec.artifact
		digest, err := fingerprint.File(filepath.Join(rc.dir, spec.artifact))
		if err != nil {
			return services.Wrap(services.ErrTransient, spec.name, "fingerprint", "digest stage artifact", err)
		}
		record.ArtifactDigest = digest
	}
	if err := o.store.UpsertStage(ctx, record); err != nil {
		return err
	}
	if _, err := o.exportManifest(ctx, rc); err != nil {
		return err
	}
	o.events.Publish(Event{Type: EventStageDone, RunID: rc.run.ID, Stage: spec.name})
	logger.Info("stage done", logging.String("stage", spec.name))
	return nil
}

func (o *Orchestrator) stageFingerprint(rc *runContext, spec stageSpec) (string, error) {
	digests := make([]string, 0, len(spec.deps))
	for _, dep := range spec.deps {
		digest, err := fingerprint.File(filepath.Join(rc.dir, dep))
		if err != nil {
			return "", err
		}
		digests = append(digests, digest)
	}
	return fingerprint.Compute(spec.name, spec.config, digests, rc.src.Identity)
}

// cacheIntact reports whether a previously recorded stage result can stand.
func (o *Orchestrator) cacheIntact(ctx context.Context, rc *runContext, rec state.StageRecord, spec stageSpec) bool {
	if spec.verify != nil {
		return spec.verify(ctx, rc)
	}
	if rec.ArtifactPath == "" {
		return false
	}
	digest, err := fingerprint.File(filepath.Join(rc.dir, rec.ArtifactPath))
	if err != nil {
		return false
	}
	return digest == rec.ArtifactDigest
}

func (o *Orchestrator) failRun(ctx context.Context, rc *runContext, cause error) {
	status := state.StatusFailed
	if ctx.Err() != nil {
		status = state.StatusCancelled
	}
	_ = o.store.UpdateRunStatus(context.WithoutCancel(ctx), rc.run.ID, status, cause.Error())
	o.events.Publish(Event{Type: EventRunFinished, RunID: rc.run.ID, Message: string(status)})
}

// finalStatus derives the run outcome from its render jobs.
func (o *Orchestrator) finalStatus(ctx context.Context, rc *runContext) (state.Status, string) {
	jobs, err := o.store.ListJobs(ctx, rc.run.ID)
	if err != nil {
		return state.StatusDone, ""
	}
	succeeded, failed := 0, 0
	for _, job := range jobs {
		switch job.Status {
		case state.StatusDone:
			succeeded++
		case state.StatusFailed:
			failed++
		}
	}
	if failed > 0 && succeeded > 0 {
		return state.StatusPartialSuccess, fmt.Sprintf("%d of %d clips failed", failed, failed+succeeded)
	}
	return state.StatusDone, ""
}

func (o *Orchestrator) exportManifest(ctx context.Context, rc *runContext) (state.Manifest, error) {
	manifest, err := o.store.BuildManifest(ctx, rc.run.ID)
	if err != nil {
		return state.Manifest{}, err
	}
	if err := state.ExportManifest(manifest, filepath.Join(rc.dir, artifactManifest)); err != nil {
		return state.Manifest{}, err
	}
	return manifest, nil
}
