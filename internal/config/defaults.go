package config

const (
	defaultDataDir   = "~/.local/share/clipforge/runs"
	defaultOutputDir = "~/clipforge/output"
	defaultLogDir    = "~/.local/share/clipforge/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultSampleRate        = 16000
	defaultFrameSeconds      = 0.25
	defaultHopSeconds        = 0.125
	defaultThresholdK        = 1.6
	defaultThresholdWindow   = 240
	defaultMinPeakSeparation = 7.5
	defaultPreBuffer         = 1.5
	defaultPostBuffer        = 8.0
	defaultMinSourceSeconds  = 10.0
	defaultAnalysisTimeout   = 600

	defaultWhisperBinary      = "whisper-cli"
	defaultWhisperModel       = "~/.local/share/clipforge/models/ggml-base.bin"
	defaultConfidence         = 0.4
	defaultIncludeBoost       = 1.5
	defaultChunking           = "full"
	defaultChunkPadding       = 2.0
	defaultPeakWeight         = 0.6
	defaultTranscriptWeight   = 0.4
	defaultTranscribeTimeout  = 1800
	defaultTranscriptLanguage = "en"

	defaultMinClipSeconds  = 15.0
	defaultMaxClipSeconds  = 60.0
	defaultMaxTotalSeconds = 300.0
	defaultMinGapSeconds   = 2.0

	defaultRenderWorkers     = 2
	defaultRenderRetryCount  = 1
	defaultRenderTimeout     = 900
	defaultPaddingSeconds    = 0.5
	defaultTargetWidth       = 1080
	defaultTargetHeight      = 1920
	defaultDurationTolerance = 1.5
	defaultVideoCodec        = "libx264"
	defaultVideoBitrate      = "8M"
	defaultAudioCodec        = "aac"
	defaultAudioBitrate      = "192k"

	defaultFontName       = "Inter"
	defaultFontSize       = 18
	defaultOutlineWidth   = 3
	defaultPrimaryColor   = "&H00FFAA00"
	defaultOutlineColor   = "&H00FFFFFF"
	defaultAlignment      = 2
	defaultMarginVertical = 50
	defaultMaxLineLength  = 36
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Analysis: Analysis{
			SampleRate:        defaultSampleRate,
			FrameSeconds:      defaultFrameSeconds,
			HopSeconds:        defaultHopSeconds,
			ThresholdK:        defaultThresholdK,
			ThresholdWindow:   defaultThresholdWindow,
			MinPeakSeparation: defaultMinPeakSeparation,
			PreBuffer:         defaultPreBuffer,
			PostBuffer:        defaultPostBuffer,
			MinSourceSeconds:  defaultMinSourceSeconds,
			TimeoutSeconds:    defaultAnalysisTimeout,
		},
		Transcript: Transcript{
			Binary:              defaultWhisperBinary,
			Model:               defaultWhisperModel,
			Language:            defaultTranscriptLanguage,
			ConfidenceThreshold: defaultConfidence,
			IncludeBoost:        defaultIncludeBoost,
			Chunking:            defaultChunking,
			ChunkPadding:        defaultChunkPadding,
			PeakWeight:          defaultPeakWeight,
			TranscriptWeight:    defaultTranscriptWeight,
			TimeoutSeconds:      defaultTranscribeTimeout,
		},
		Selection: Selection{
			MinClipSeconds:  defaultMinClipSeconds,
			MaxClipSeconds:  defaultMaxClipSeconds,
			MaxTotalSeconds: defaultMaxTotalSeconds,
			MinGapSeconds:   defaultMinGapSeconds,
		},
		Render: Render{
			Workers:           defaultRenderWorkers,
			RetryCount:        defaultRenderRetryCount,
			TimeoutSeconds:    defaultRenderTimeout,
			PaddingSeconds:    defaultPaddingSeconds,
			TargetWidth:       defaultTargetWidth,
			TargetHeight:      defaultTargetHeight,
			DurationTolerance: defaultDurationTolerance,
			VideoCodec:        defaultVideoCodec,
			VideoBitrate:      defaultVideoBitrate,
			AudioCodec:        defaultAudioCodec,
			AudioBitrate:      defaultAudioBitrate,
		},
		SubtitleStyle: SubtitleStyle{
			FontName:       defaultFontName,
			FontSize:       defaultFontSize,
			Bold:           true,
			OutlineWidth:   defaultOutlineWidth,
			PrimaryColor:   defaultPrimaryColor,
			OutlineColor:   defaultOutlineColor,
			Alignment:      defaultAlignment,
			MarginVertical: defaultMarginVertical,
			MaxLineLength:  defaultMaxLineLength,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
