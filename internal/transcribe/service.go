package transcribe

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/tolka/tolka/internal/audio"
	"github.com/tolka/tolka/internal/upload"
	"github.com/tolka/tolka/internal/whisper"
)

const silenceThresholdDBFS = -65

// Options carries the per-request settings picked in the UI.
type Options struct {
	Model       string
	Language    LanguageMode
	Translation TranslationMode
}

// Outcome bundles the engine result with what the run actually did.
// Warnings are advisory; they never replace a result.
type Outcome struct {
	Result   whisper.Result
	Model    string
	Task     Task
	Hint     string
	Elapsed  time.Duration
	Warnings []string
}

type Service struct {
	engine whisper.Engine
	models *whisper.Cache
	logger *zap.Logger
	jobs   *semaphore.Weighted
}

// New builds a Service. maxJobs caps concurrent inference runs; anything
// below one falls back to strictly serial transcription.
func New(engine whisper.Engine, models *whisper.Cache, logger *zap.Logger, maxJobs int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxJobs <= 0 {
		maxJobs = 1
	}

	return &Service{
		engine: engine,
		models: models,
		logger: logger,
		jobs:   semaphore.NewWeighted(int64(maxJobs)),
	}
}

// Transcribe stages the upload in a temporary file, resolves the model and
// task, and runs inference. The temporary file is removed before Transcribe
// returns, on success and on failure alike; when removal itself fails, the
// outcome carries a warning instead of losing the result.
func (s *Service) Transcribe(ctx context.Context, src io.Reader, filename string, opts Options) (out Outcome, err error) {
	if err := s.jobs.Acquire(ctx, 1); err != nil {
		return Outcome{}, fmt.Errorf("wait for transcription slot: %w", err)
	}
	defer s.jobs.Release(1)

	tmp, err := upload.Save("", src, filename)
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if cerr := tmp.Close(); cerr != nil {
			s.logger.Warn("uploaded audio not cleaned up", zap.String("path", tmp.Path()), zap.Error(cerr))
			out.Warnings = append(out.Warnings, fmt.Sprintf("temporary audio file could not be removed: %v", cerr))
		}
	}()

	out.Model = strings.TrimSpace(opts.Model)
	if out.Model == "" {
		out.Model = whisper.DefaultModel
	}
	out.Task, out.Hint = Resolve(opts.Translation, opts.Language)

	s.probeUpload(tmp.Path(), &out)

	modelPath, err := s.models.Path(ctx, out.Model)
	if err != nil {
		return out, err
	}

	s.logger.Info("transcribing",
		zap.String("file", filename),
		zap.String("model", out.Model),
		zap.String("task", string(out.Task)),
		zap.String("language_hint", out.Hint),
	)

	started := time.Now()
	result, err := s.engine.Transcribe(ctx, whisper.Request{
		AudioPath: tmp.Path(),
		ModelPath: modelPath,
		Language:  out.Hint,
		Translate: out.Task == TaskTranslate,
	})
	out.Elapsed = time.Since(started)
	if err != nil {
		s.logger.Warn("transcription failed", zap.Duration("elapsed", out.Elapsed), zap.Error(err))
		return out, fmt.Errorf("transcription failed: %w", err)
	}

	s.logger.Info("transcription finished",
		zap.Duration("elapsed", out.Elapsed),
		zap.String("language", result.Language),
		zap.Int("segments", len(result.Segments)),
	)

	if isBlankTranscript(result.Text) {
		out.Warnings = append(out.Warnings, noSpeechHint())
	}

	out.Result = result
	return out, nil
}

// probeUpload peeks at WAV uploads to flag silent audio before the engine
// spends minutes on it. Compressed formats and probe failures are skipped
// without affecting the run.
func (s *Service) probeUpload(path string, out *Outcome) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return
	}

	info, err := audio.Probe(path)
	if err != nil {
		s.logger.Debug("audio probe failed", zap.String("path", path), zap.Error(err))
		return
	}

	s.logger.Debug("uploaded audio",
		zap.Duration("duration", info.Duration),
		zap.Int("sample_rate", info.SampleRate),
		zap.Int("channels", info.Channels),
		zap.Float64("rms_dbfs", info.RMSdBFS),
		zap.Float64("peak_dbfs", info.PeakdBFS),
	)

	if info.Silent(silenceThresholdDBFS) {
		out.Warnings = append(out.Warnings, "uploaded audio is nearly silent; the transcript will likely be empty")
	}
}
