package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/config"
	"clipforge/internal/media"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/state"
	"clipforge/internal/testsupport"
	"clipforge/internal/transcript"
)

type stubResolver struct {
	src media.Source
}

func (s stubResolver) Resolve(context.Context, string) (media.Source, error) {
	return s.src, nil
}

type stubAnalyzer struct {
	peaks []analysis.Peak
	calls int
}

func (s *stubAnalyzer) Peaks(_ context.Context, _ media.Source, runDir string) ([]analysis.Peak, error) {
	s.calls++
	// The production analyzer leaves the extracted audio behind for the
	// transcribe stage; the stub mimics that.
	if err := os.WriteFile(filepath.Join(runDir, artifactAudio), []byte("wav"), 0o644); err != nil {
		return nil, err
	}
	return s.peaks, nil
}

type stubEngine struct {
	segments []transcript.Segment
	err      error
	calls    int
}

func (s *stubEngine) Transcribe(context.Context, string) ([]transcript.Segment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.segments, nil
}

type stubEncoder struct {
	mu       sync.Mutex
	failures map[int]int
	calls    int
}

func (s *stubEncoder) Encode(_ context.Context, _ string, job render.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures[job.Index] > 0 {
		s.failures[job.Index]--
		return services.Wrap(services.ErrEncode, "render", "encode clip", "stub failure", nil)
	}
	return os.WriteFile(job.OutputPath, []byte("mp4"), 0o644)
}

func (s *stubEncoder) Verify(context.Context, render.Job) error { return nil }

func testSource() media.Source {
	return media.Source{
		Path:            "/videos/match.mp4",
		Identity:        "aabbccdd00112233",
		DurationSeconds: 600,
		Width:           1920,
		Height:          1080,
		AudioStreams:    1,
	}
}

func testPeaks() []analysis.Peak {
	return []analysis.Peak{
		{Time: 50, Score: 2.0, Window: analysis.Window{Start: 48.5, End: 58}},
		{Time: 200, Score: 1.8, Window: analysis.Window{Start: 198.5, End: 208}},
		{Time: 400, Score: 1.5, Window: analysis.Window{Start: 398.5, End: 408}},
	}
}

type fixture struct {
	cfg      *config.Config
	store    *state.Store
	analyzer *stubAnalyzer
	engine   *stubEngine
	encoder  *stubEncoder
	events   *ChannelPublisher
	orch     *Orchestrator
}

func newFixture(t *testing.T, mutate func(*fixture)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	f := &fixture{
		cfg:      cfg,
		store:    store,
		analyzer: &stubAnalyzer{peaks: testPeaks()},
		engine:   &stubEngine{},
		encoder:  &stubEncoder{},
		events:   NewChannelPublisher(256),
	}
	if mutate != nil {
		mutate(f)
	}
	f.orch = New(cfg, store, nil,
		WithResolver(stubResolver{src: testSource()}),
		WithAnalyzer(f.analyzer),
		WithEngine(f.engine),
		WithEncoder(f.encoder),
		WithPublisher(f.events),
	)
	return f
}

func drainEvents(f *fixture) []Event {
	var events []Event
	for {
		select {
		case ev := <-f.events.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func countEvents(events []Event, eventType EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestRunAllDegradedMode(t *testing.T) {
	// Scenario: the transcription model is unavailable; the run completes
	// in peaks-only mode with clips inside the duration bounds.
	f := newFixture(t, func(f *fixture) {
		f.engine.err = services.Wrap(services.ErrModelUnavailable, "transcribe", "resolve model", "model missing", nil)
	})

	manifest, err := f.orch.RunAll(context.Background(), "/videos/match.mp4")
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if manifest.Status != state.StatusDone {
		t.Fatalf("expected done run, got %q", manifest.Status)
	}
	if !manifest.Degraded {
		t.Fatal("expected degraded flag on manifest")
	}
	if len(manifest.Jobs) == 0 {
		t.Fatal("expected rendered jobs in degraded mode")
	}
	for _, job := range manifest.Jobs {
		span := job.ClipEnd - job.ClipStart
		pad := 2 * f.cfg.Render.PaddingSeconds
		if span < f.cfg.Selection.MinClipSeconds || span > f.cfg.Selection.MaxClipSeconds+pad {
			t.Fatalf("job span %v outside clip bounds", span)
		}
		if job.Status != state.StatusDone {
			t.Fatalf("expected job done, got %q", job.Status)
		}
	}

	events := drainEvents(f)
	if countEvents(events, EventDegraded) != 1 {
		t.Fatalf("expected one degraded event, got %d", countEvents(events, EventDegraded))
	}
}

func TestRunAllConfidenceThresholdFallback(t *testing.T) {
	// Scenario: every segment falls below the confidence threshold; the
	// pipeline falls back to raw peak windows without the degraded flag.
	f := newFixture(t, func(f *fixture) {
		f.cfg.Transcript.ConfidenceThreshold = 0.99
		f.engine.segments = []transcript.Segment{
			{Start: 49, End: 55, Text: "mumbling", Confidence: 0.5},
			{Start: 199, End: 205, Text: "more mumbling", Confidence: 0.6},
		}
	})

	manifest, err := f.orch.RunAll(context.Background(), "/videos/match.mp4")
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if manifest.Degraded {
		t.Fatal("confidence fallback must not set the degraded flag")
	}
	if manifest.Status != state.StatusDone {
		t.Fatalf("expected done run, got %q", manifest.Status)
	}
	if len(manifest.Jobs) != len(testPeaks()) {
		t.Fatalf("expected one job per peak, got %d", len(manifest.Jobs))
	}

	var candidates []transcript.Candidate
	runDir := filepath.Join(f.cfg.Paths.DataDir, "match-aabbccdd")
	if err := readJSON(filepath.Join(runDir, artifactCandidates), &candidates); err != nil {
		t.Fatalf("read candidates: %v", err)
	}
	for _, c := range candidates {
		if c.Text != "" || len(c.Cues) != 0 {
			t.Fatalf("peaks-only candidates must carry no transcript text: %+v", c)
		}
	}
}

func TestRunAllPartialSuccess(t *testing.T) {
	// Scenario: one render job fails on both attempts; the others succeed
	// and the run finishes as partial success.
	f := newFixture(t, func(f *fixture) {
		f.encoder.failures = map[int]int{1: 2}
	})

	manifest, err := f.orch.RunAll(context.Background(), "/videos/match.mp4")
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if manifest.Status != state.StatusPartialSuccess {
		t.Fatalf("expected partial_success, got %q", manifest.Status)
	}
	if len(manifest.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(manifest.Jobs))
	}
	for _, job := range manifest.Jobs {
		switch job.ClipIndex {
		case 1:
			if job.Status != state.StatusFailed {
				t.Fatalf("expected job 1 failed, got %q", job.Status)
			}
			if job.Attempts != 2 {
				t.Fatalf("expected 2 attempts on failed job, got %d", job.Attempts)
			}
			if job.ErrorMessage == "" {
				t.Fatal("expected error message on failed job")
			}
		default:
			if job.Status != state.StatusDone {
				t.Fatalf("expected job %d done, got %q", job.ClipIndex, job.Status)
			}
		}
	}
}

func TestRunAllIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("first RunAll failed: %v", err)
	}
	firstAnalyzerCalls := f.analyzer.calls
	firstEncoderCalls := f.encoder.calls
	drainEvents(f)

	manifest, err := f.orch.RunAll(ctx, "/videos/match.mp4")
	if err != nil {
		t.Fatalf("second RunAll failed: %v", err)
	}
	if manifest.Status != state.StatusDone {
		t.Fatalf("expected done run, got %q", manifest.Status)
	}
	if f.analyzer.calls != firstAnalyzerCalls {
		t.Fatal("analyze recomputed despite matching fingerprint")
	}
	if f.encoder.calls != firstEncoderCalls {
		t.Fatal("render recomputed despite matching fingerprint")
	}

	events := drainEvents(f)
	if got := countEvents(events, EventStageSkipped); got != 4 {
		t.Fatalf("expected 4 skipped stages, got %d", got)
	}
	for _, stage := range manifest.Stages {
		if stage.Status != state.StatusSkipped {
			t.Fatalf("expected stage %q skipped, got %q", stage.Name, stage.Status)
		}
	}
}

func TestRunAllRecomputesOnCacheCorruption(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("first RunAll failed: %v", err)
	}
	firstAnalyzerCalls := f.analyzer.calls

	runDir := filepath.Join(f.cfg.Paths.DataDir, "match-aabbccdd")
	if err := os.WriteFile(filepath.Join(runDir, artifactPeaks), []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("corrupt artifact: %v", err)
	}

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("second RunAll failed: %v", err)
	}
	if f.analyzer.calls <= firstAnalyzerCalls {
		t.Fatal("expected analyze to recompute after artifact corruption")
	}
}

func TestRunAllConfigChangeInvalidatesDownstream(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("first RunAll failed: %v", err)
	}
	firstEncoderCalls := f.encoder.calls
	firstAnalyzerCalls := f.analyzer.calls

	// Changing selection config reruns select. Its output here is
	// byte-identical, so render still skips on the unchanged clip plan.
	f.cfg.Selection.MaxTotalSeconds = 120
	drainEvents(f)

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("second RunAll failed: %v", err)
	}
	if f.analyzer.calls != firstAnalyzerCalls {
		t.Fatal("analyze should stay cached after selection config change")
	}
	if f.encoder.calls != firstEncoderCalls {
		t.Fatal("render should stay cached when the clip plan is unchanged")
	}

	events := drainEvents(f)
	if got := countEvents(events, EventStageStarted); got != 1 {
		t.Fatalf("expected only select to rerun, got %d started stages", got)
	}
	if got := countEvents(events, EventStageSkipped); got != 3 {
		t.Fatalf("expected 3 skipped stages, got %d", got)
	}
}

// blockingEncoder never finishes on its own; only context expiry releases it.
type blockingEncoder struct{}

func (blockingEncoder) Encode(ctx context.Context, _ string, _ render.Job) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingEncoder) Verify(context.Context, render.Job) error { return nil }

func TestRunAllRenderTimeout(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.cfg.Render.TimeoutSeconds = 1
	})
	f.orch.encoder = blockingEncoder{}

	start := time.Now()
	_, err := f.orch.RunAll(context.Background(), "/videos/match.mp4")
	if err == nil {
		t.Fatal("expected render stage to fail once its timeout expires")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("render ran %v despite a 1s stage timeout", elapsed)
	}

	ctx := context.Background()
	run, found, lookupErr := f.store.FindRunBySource(ctx, testSource().Identity)
	if lookupErr != nil || !found {
		t.Fatalf("run lookup failed: %v", lookupErr)
	}
	if run.Status != state.StatusFailed {
		t.Fatalf("expected failed run, got %q", run.Status)
	}
	rec, ok, recErr := f.store.GetStage(ctx, run.ID, state.StageRender)
	if recErr != nil || !ok {
		t.Fatalf("render stage lookup failed: %v", recErr)
	}
	if rec.Status != state.StatusFailed {
		t.Fatalf("expected failed render stage, got %q", rec.Status)
	}
}

func TestRunAllFailsWhenEveryJobFails(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.encoder.failures = map[int]int{0: 10, 1: 10, 2: 10}
	})

	_, err := f.orch.RunAll(context.Background(), "/videos/match.mp4")
	if err == nil {
		t.Fatal("expected run failure when every job fails")
	}
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected encode failure marker, got %v", err)
	}

	run, found, lookupErr := f.store.FindRunBySource(context.Background(), testSource().Identity)
	if lookupErr != nil || !found {
		t.Fatalf("run lookup failed: %v", lookupErr)
	}
	if run.Status != state.StatusFailed {
		t.Fatalf("expected failed run, got %q", run.Status)
	}
}

func TestRunStageRequiresUpstream(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.RunStage(context.Background(), "/videos/match.mp4", state.StageSelect)
	if err == nil {
		t.Fatal("expected error when upstream stages have not run")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunStageSingle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	manifest, err := f.orch.RunStage(ctx, "/videos/match.mp4", state.StageAnalyze)
	if err != nil {
		t.Fatalf("RunStage failed: %v", err)
	}
	if len(manifest.Stages) != 1 {
		t.Fatalf("expected a single stage record, got %d", len(manifest.Stages))
	}
	if manifest.Stages[0].Name != state.StageAnalyze || manifest.Stages[0].Status != state.StatusDone {
		t.Fatalf("unexpected stage record: %+v", manifest.Stages[0])
	}

	// The next stage can now run on its own.
	if _, err := f.orch.RunStage(ctx, "/videos/match.mp4", state.StageTranscribe); err != nil {
		t.Fatalf("transcribe RunStage failed: %v", err)
	}
}

// cancellingEngine cancels the run while the transcribe stage is in flight.
type cancellingEngine struct {
	cancel context.CancelFunc
}

func (e cancellingEngine) Transcribe(ctx context.Context, _ string) ([]transcript.Segment, error) {
	e.cancel()
	return nil, services.Wrap(services.ErrTimeout, "transcribe", "run engine", "interrupted", ctx.Err())
}

func TestRunAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, nil)
	f.orch.engine = cancellingEngine{cancel: cancel}

	_, err := f.orch.RunAll(ctx, "/videos/match.mp4")
	if err == nil {
		t.Fatal("expected cancellation error")
	}

	run, found, lookupErr := f.store.FindRunBySource(context.Background(), testSource().Identity)
	if lookupErr != nil || !found {
		t.Fatalf("run lookup failed: %v", lookupErr)
	}
	if run.Status != state.StatusCancelled {
		t.Fatalf("expected cancelled run, got %q", run.Status)
	}
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	p := NewChannelPublisher(1)
	p.Publish(Event{Type: EventRunStarted, RunID: "a"})
	p.Publish(Event{Type: EventRunFinished, RunID: "b"})
	p.Close()

	var received []Event
	for ev := range p.Events() {
		received = append(received, ev)
	}
	if len(received) != 1 || received[0].RunID != "a" {
		t.Fatalf("expected only the first event to be retained, got %+v", received)
	}
}

func TestStatusReportsManifest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.orch.RunAll(ctx, "/videos/match.mp4"); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	manifest, err := f.orch.Status(ctx, "/videos/match.mp4")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if manifest.Status != state.StatusDone || len(manifest.Stages) != 4 {
		t.Fatalf("unexpected status manifest: %+v", manifest)
	}
}
