package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CLIEngine runs inference through a whisper.cpp whisper-cli binary and
// reads the JSON transcript it writes next to the audio.
type CLIEngine struct {
	Executable string
	Logger     *zap.Logger
}

// NewCLIEngine locates the whisper-cli binary. An explicit path wins;
// otherwise PATH is searched, then the usual install locations next to
// the tolka executable.
func NewCLIEngine(executable string, logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path := strings.TrimSpace(executable); path != "" {
		if err := ensureExecutable(path); err != nil {
			return nil, fmt.Errorf("whisper binary %s is not usable: %w", path, err)
		}
		return &CLIEngine{Executable: path, Logger: logger}, nil
	}

	if path, err := exec.LookPath(engineBinaryName()); err == nil {
		return &CLIEngine{Executable: path, Logger: logger}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable path: %w", err)
	}

	path, err := ResolveEnginePath(self)
	if err != nil {
		return nil, err
	}

	return &CLIEngine{Executable: path, Logger: logger}, nil
}

// ResolveEnginePath checks the install layouts we ship: a libexec
// directory next to the binary, or the binary's own directory.
func ResolveEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range enginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("whisper-cli not found on PATH or near %s; install whisper.cpp or point --whisper-bin at the binary", selfExecutable)
}

func enginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, engineName),
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func (e *CLIEngine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Result{}, errors.New("model path is required")
	}

	if err := ensureExecutable(e.Executable); err != nil {
		return Result{}, fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("tolka-%d", time.Now().UnixNano()))
	jsonPath := outBase + ".json"

	language := strings.TrimSpace(strings.ToLower(req.Language))
	if language == "" {
		language = "auto"
	}

	// whisper-cli defaults the language to English, so the hint is always
	// passed; "auto" requests detection.
	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-oj",
		"-of", outBase,
		"-np",
		"-l", language,
	}
	if req.Translate {
		args = append(args, "-tr")
	}

	cmd := exec.CommandContext(ctx, e.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	e.log().Debug("running whisper engine",
		zap.String("engine", e.Executable),
		zap.Strings("args", args),
	)

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return Result{}, fmt.Errorf("whisper engine at %s cannot load its shared libraries (%s); rebuild whisper.cpp statically or fix the library search path", e.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return Result{}, fmt.Errorf("whisper engine crashed with an illegal CPU instruction; point --whisper-bin at a whisper-cli built for this machine")
		}
		if errText == "" {
			return Result{}, fmt.Errorf("whisper engine failed: %w", err)
		}
		return Result{}, fmt.Errorf("whisper engine failed: %w: %s", err, errText)
	}

	defer os.Remove(jsonPath)

	payload, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}

	return parseEngineOutput(payload)
}

func (e *CLIEngine) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// engineOutput mirrors the parts of whisper-cli's -oj payload we consume.
// Offsets are milliseconds.
type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseEngineOutput(payload []byte) (Result, error) {
	var parsed engineOutput
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse whisper output: %w", err)
	}

	result := Result{Language: parsed.Result.Language}

	var full strings.Builder
	for _, entry := range parsed.Transcription {
		full.WriteString(entry.Text)
		result.Segments = append(result.Segments, Segment{
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  strings.TrimSpace(entry.Text),
		})
	}
	result.Text = strings.TrimSpace(full.String())

	return result, nil
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(output string) bool {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "error while loading shared libraries") {
		return true
	}
	if strings.Contains(lower, "cannot open shared object file") {
		return true
	}
	return strings.Contains(lower, "library not loaded")
}

func isIllegalInstructionError(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "illegal instruction") || strings.Contains(lower, "sigill")
}
