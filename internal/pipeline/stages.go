package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/render"
	"clipforge/internal/selection"
	"clipforge/internal/services"
	"clipforge/internal/state"
	"clipforge/internal/transcript"
)

// stageSpec describes one stage to the orchestrator: its fingerprint inputs,
// its primary artifact, and the work itself.
type stageSpec struct {
	name     string
	config   any
	deps     []string
	artifact string
	timeout  time.Duration
	run      func(ctx context.Context, rc *runContext) error
	// verify overrides the default artifact-digest cache check.
	verify func(ctx context.Context, rc *runContext) bool
}

func (o *Orchestrator) stages() []stageSpec {
	return []stageSpec{
		{
			name:     state.StageAnalyze,
			config:   o.cfg.Analysis,
			artifact: artifactPeaks,
			timeout:  time.Duration(o.cfg.Analysis.TimeoutSeconds) * time.Second,
			run:      o.runAnalyze,
		},
		{
			name:     state.StageTranscribe,
			config:   o.cfg.Transcript,
			deps:     []string{artifactPeaks},
			artifact: artifactCandidates,
			timeout:  time.Duration(o.cfg.Transcript.TimeoutSeconds) * time.Second,
			run:      o.runTranscribe,
		},
		{
			name:     state.StageSelect,
			config:   o.cfg.Selection,
			deps:     []string{artifactCandidates},
			artifact: artifactClips,
			run:      o.runSelect,
		},
		{
			name:    state.StageRender,
			config:  renderStageConfig{Render: o.cfg.Render, Style: o.cfg.SubtitleStyle},
			deps:    []string{artifactClips},
			timeout: time.Duration(o.cfg.Render.TimeoutSeconds) * time.Second,
			run:     o.runRender,
			verify:  o.renderCacheIntact,
		},
	}
}

// renderStageConfig groups everything that invalidates rendered outputs.
type renderStageConfig struct {
	Render config.Render        `json:"render"`
	Style  config.SubtitleStyle `json:"style"`
}

// Analyzer produces excitement peaks for a source. Split out as an interface
// so tests can avoid the ffmpeg round trip.
type Analyzer interface {
	Peaks(ctx context.Context, src media.Source, runDir string) ([]analysis.Peak, error)
}

// ffmpegAnalyzer extracts mono PCM audio with ffmpeg and runs envelope/peak
// detection over it.
type ffmpegAnalyzer struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (a *ffmpegAnalyzer) Peaks(ctx context.Context, src media.Source, runDir string) ([]analysis.Peak, error) {
	wavPath := filepath.Join(runDir, artifactAudio)
	if err := media.ExtractAudio(ctx, a.cfg.FFmpegBinary(), src.Path, wavPath, a.cfg.Analysis.SampleRate); err != nil {
		return nil, err
	}
	pcm, err := media.DecodeWAV(wavPath)
	if err != nil {
		return nil, err
	}

	envelope := analysis.ComputeEnvelope(pcm, a.cfg.Analysis.FrameSeconds, a.cfg.Analysis.HopSeconds)
	peaks := analysis.DetectPeaks(envelope, analysis.Params{
		ThresholdK:      a.cfg.Analysis.ThresholdK,
		ThresholdWindow: a.cfg.Analysis.ThresholdWindow,
		MinSeparation:   a.cfg.Analysis.MinPeakSeparation,
		PreBuffer:       a.cfg.Analysis.PreBuffer,
		PostBuffer:      a.cfg.Analysis.PostBuffer,
		SourceDuration:  src.DurationSeconds,
	})
	return peaks, nil
}

func (o *Orchestrator) runAnalyze(ctx context.Context, rc *runContext) error {
	logger := logging.WithContext(ctx, o.logger)
	peaks := []analysis.Peak{}

	if rc.src.DurationSeconds < o.cfg.Analysis.MinSourceSeconds {
		logger.Warn("source below minimum duration, no peaks detected",
			logging.Float64("duration_seconds", rc.src.DurationSeconds),
			logging.Float64("minimum_seconds", o.cfg.Analysis.MinSourceSeconds))
	} else {
		detected, err := o.analyzer.Peaks(ctx, rc.src, rc.dir)
		if err != nil {
			return err
		}
		if detected != nil {
			peaks = detected
		}
		logger.Info("audio analysis complete", logging.Int("peaks", len(peaks)))
	}
	return writeJSON(filepath.Join(rc.dir, artifactPeaks), peaks)
}

func (o *Orchestrator) runTranscribe(ctx context.Context, rc *runContext) error {
	logger := logging.WithContext(ctx, o.logger)

	var peaks []analysis.Peak
	if err := readJSON(filepath.Join(rc.dir, artifactPeaks), &peaks); err != nil {
		return services.Wrap(services.ErrCacheCorruption, state.StageTranscribe, "load peaks", "peaks artifact unreadable", err)
	}

	segments, degraded, err := o.transcribeSegments(ctx, rc, peaks)
	if err != nil {
		return err
	}
	if degraded {
		rc.run.Degraded = true
		if err := o.store.SetRunDegraded(ctx, rc.run.ID, true); err != nil {
			return err
		}
		o.events.Publish(Event{Type: EventDegraded, RunID: rc.run.ID, Stage: state.StageTranscribe})
	}

	filterOpts := transcript.FilterOptions{
		ConfidenceThreshold: o.cfg.Transcript.ConfidenceThreshold,
		IncludeKeywords:     o.cfg.Transcript.IncludeKeywords,
		ExcludeKeywords:     o.cfg.Transcript.ExcludeKeywords,
		IncludeBoost:        o.cfg.Transcript.IncludeBoost,
	}
	filtered := transcript.Filter(segments, filterOpts)
	if err := writeJSON(filepath.Join(rc.dir, artifactTranscript), filtered); err != nil {
		return err
	}

	reconcileOpts := transcript.ReconcileOptions{
		PeakWeight:       o.cfg.Transcript.PeakWeight,
		TranscriptWeight: o.cfg.Transcript.TranscriptWeight,
		MinClipSeconds:   o.cfg.Selection.MinClipSeconds,
		MaxClipSeconds:   o.cfg.Selection.MaxClipSeconds,
		SourceDuration:   rc.src.DurationSeconds,
		Filter:           filterOpts,
	}
	var candidates []transcript.Candidate
	if degraded || len(filtered) == 0 {
		if !degraded && len(segments) > 0 {
			logger.Info("no segments above confidence threshold, using peak windows")
		}
		candidates = transcript.PeaksOnly(peaks, reconcileOpts)
	} else {
		candidates = transcript.Reconcile(peaks, filtered, reconcileOpts)
	}
	logger.Info("candidates built",
		logging.Int("segments", len(filtered)),
		logging.Int("candidates", len(candidates)),
		logging.Bool("degraded", degraded))
	return writeJSON(filepath.Join(rc.dir, artifactCandidates), candidates)
}

// transcribeSegments runs the engine over the configured chunking strategy.
// A degradable engine failure returns (nil, true, nil) so the run continues
// in peaks-only mode.
func (o *Orchestrator) transcribeSegments(ctx context.Context, rc *runContext, peaks []analysis.Peak) ([]transcript.Segment, bool, error) {
	logger := logging.WithContext(ctx, o.logger)

	degrade := func(err error) ([]transcript.Segment, bool, error) {
		logger.Warn("transcription engine unavailable, continuing in peaks-only mode", logging.Error(err))
		return nil, true, nil
	}

	if o.cfg.Transcript.Chunking == "peaks" {
		chunkDir := filepath.Join(rc.dir, "chunks")
		if err := os.MkdirAll(chunkDir, 0o755); err != nil {
			return nil, false, services.Wrap(services.ErrTransient, state.StageTranscribe, "chunk", "create chunk directory", err)
		}
		var all []transcript.Segment
		for i, peak := range peaks {
			start := peak.Window.Start - o.cfg.Transcript.ChunkPadding
			if start < 0 {
				start = 0
			}
			end := peak.Window.End + o.cfg.Transcript.ChunkPadding
			if end > rc.src.DurationSeconds {
				end = rc.src.DurationSeconds
			}
			chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.wav", i))
			if err := media.ExtractAudioSpan(ctx, o.cfg.FFmpegBinary(), rc.src.Path, chunkPath, o.cfg.Analysis.SampleRate, start, end-start); err != nil {
				return nil, false, err
			}
			segments, err := o.engine.Transcribe(ctx, chunkPath)
			if err != nil {
				if services.Degradable(err) {
					return degrade(err)
				}
				return nil, false, err
			}
			all = append(all, transcript.Offset(segments, start)...)
		}
		sort.SliceStable(all, func(a, b int) bool { return all[a].Start < all[b].Start })
		return all, false, nil
	}

	wavPath := filepath.Join(rc.dir, artifactAudio)
	if _, err := os.Stat(wavPath); err != nil {
		// Short sources skip audio extraction in analyze; extract now.
		if err := media.ExtractAudio(ctx, o.cfg.FFmpegBinary(), rc.src.Path, wavPath, o.cfg.Analysis.SampleRate); err != nil {
			return nil, false, err
		}
	}
	segments, err := o.engine.Transcribe(ctx, wavPath)
	if err != nil {
		if services.Degradable(err) {
			return degrade(err)
		}
		return nil, false, err
	}
	return segments, false, nil
}

func (o *Orchestrator) runSelect(ctx context.Context, rc *runContext) error {
	logger := logging.WithContext(ctx, o.logger)

	var candidates []transcript.Candidate
	if err := readJSON(filepath.Join(rc.dir, artifactCandidates), &candidates); err != nil {
		return services.Wrap(services.ErrCacheCorruption, state.StageSelect, "load candidates", "candidates artifact unreadable", err)
	}

	clips := selection.Select(candidates, selection.Options{
		MinGapSeconds:   o.cfg.Selection.MinGapSeconds,
		MaxTotalSeconds: o.cfg.Selection.MaxTotalSeconds,
	})
	total := 0.0
	for _, clip := range clips {
		total += clip.Duration()
	}
	logger.Info("clips selected",
		logging.Int("candidates", len(candidates)),
		logging.Int("clips", len(clips)),
		logging.Float64("total_seconds", total))
	return writeJSON(filepath.Join(rc.dir, artifactClips), clips)
}

func (o *Orchestrator) runRender(ctx context.Context, rc *runContext) error {
	logger := logging.WithContext(ctx, o.logger)

	var clips []selection.Clip
	if err := readJSON(filepath.Join(rc.dir, artifactClips), &clips); err != nil {
		return services.Wrap(services.ErrCacheCorruption, state.StageRender, "load clips", "clips artifact unreadable", err)
	}

	jobs, err := render.BuildPlan(clips, render.PlanParams{
		RunID:          rc.run.ID,
		RunDir:         rc.dir,
		OutputDir:      o.cfg.Paths.OutputDir,
		SourceBase:     rc.src.Base(),
		SourceDuration: rc.src.DurationSeconds,
		PaddingSeconds: o.cfg.Render.PaddingSeconds,
		Style:          o.cfg.SubtitleStyle,
		TargetWidth:    o.cfg.Render.TargetWidth,
		TargetHeight:   o.cfg.Render.TargetHeight,
	})
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		logger.Info("no clips to render")
		return nil
	}

	for _, job := range jobs {
		if err := o.store.UpsertJob(ctx, state.JobRecord{
			RunID: rc.run.ID, ClipIndex: job.Index,
			ClipStart: job.Start, ClipEnd: job.End,
			OutputPath: job.OutputPath, Status: state.StatusPending,
		}); err != nil {
			return err
		}
	}

	runner := render.Runner{
		Encoder: o.encoder,
		Workers: o.cfg.Render.Workers,
		Retries: o.cfg.Render.RetryCount,
		Observe: func(res render.Result) {
			rec := state.JobRecord{
				RunID: rc.run.ID, ClipIndex: res.Job.Index,
				ClipStart: res.Job.Start, ClipEnd: res.Job.End,
				OutputPath: res.Job.OutputPath, Attempts: res.Attempts,
			}
			eventType := EventJobDone
			if res.Succeeded() {
				rec.Status = state.StatusDone
			} else {
				rec.Status = state.StatusFailed
				rec.ErrorMessage = res.Err.Error()
				eventType = EventJobFailed
				logger.Error("render job failed",
					logging.Int("clip_index", res.Job.Index),
					logging.Int("attempts", res.Attempts),
					logging.Error(res.Err))
			}
			_ = o.store.UpsertJob(ctx, rec)
			o.events.Publish(Event{Type: eventType, RunID: rc.run.ID, Stage: state.StageRender, JobIndex: res.Job.Index})
		},
	}

	results := runner.Run(ctx, rc.src.Path, jobs)
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrTimeout, state.StageRender, "render clips", "render cancelled", err)
	}

	succeeded := 0
	for _, res := range results {
		if res.Succeeded() {
			succeeded++
		}
	}
	logger.Info("render complete",
		logging.Int("jobs", len(results)),
		logging.Int("succeeded", succeeded))
	if succeeded == 0 {
		return services.Wrap(services.ErrEncode, state.StageRender, "render clips",
			fmt.Sprintf("all %d render jobs failed", len(results)), results[0].Err)
	}
	return nil
}

// renderCacheIntact accepts a cached render only when every recorded job
// finished successfully and its output still exists.
func (o *Orchestrator) renderCacheIntact(ctx context.Context, rc *runContext) bool {
	jobs, err := o.store.ListJobs(ctx, rc.run.ID)
	if err != nil || len(jobs) == 0 {
		// A run whose clip plan was empty renders nothing; that result
		// is trivially intact.
		var clips []selection.Clip
		if err := readJSON(filepath.Join(rc.dir, artifactClips), &clips); err == nil && len(clips) == 0 {
			return true
		}
		return false
	}
	for _, job := range jobs {
		if job.Status != state.StatusDone {
			return false
		}
		if info, err := os.Stat(job.OutputPath); err != nil || info.Size() == 0 {
			return false
		}
	}
	return true
}
