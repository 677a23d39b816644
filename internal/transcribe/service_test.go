package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tolka/tolka/internal/upload"
	"github.com/tolka/tolka/internal/whisper"
)

// capturingEngine records the request it receives and whether the staged
// audio file existed at inference time.
type capturingEngine struct {
	calls   int
	req     whisper.Request
	existed bool

	result      whisper.Result
	err         error
	removeAudio bool
}

func (e *capturingEngine) Transcribe(_ context.Context, req whisper.Request) (whisper.Result, error) {
	e.calls++
	e.req = req

	_, statErr := os.Stat(req.AudioPath)
	e.existed = statErr == nil

	if e.removeAudio {
		_ = os.Remove(req.AudioPath)
	}

	return e.result, e.err
}

func newTestService(t *testing.T, engine whisper.Engine, modelFiles ...string) *Service {
	t.Helper()

	dir := t.TempDir()
	if len(modelFiles) == 0 {
		modelFiles = []string{"ggml-small.bin"}
	}
	for _, name := range modelFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("weights"), 0o644))
	}

	models := whisper.NewCache(whisper.CacheOptions{Dir: dir})
	return New(engine, models, zap.NewNop(), 1)
}

func TestServiceTranscribeHappyPath(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{
		Language: "sv",
		Text:     "Hej världen",
		Segments: []whisper.Segment{{Start: 0, End: 1.5, Text: "Hej världen"}},
	}}
	svc := newTestService(t, engine)

	out, err := svc.Transcribe(context.Background(), strings.NewReader("fake mp3"), "möte.mp3", Options{
		Language:    LanguageSwedish,
		Translation: TranslateNone,
	})
	require.NoError(t, err)

	require.Equal(t, "small", out.Model)
	require.Equal(t, TaskTranscribe, out.Task)
	require.Equal(t, "sv", out.Hint)
	require.Equal(t, "Hej världen", out.Result.Text)
	require.Empty(t, out.Warnings)

	require.Equal(t, 1, engine.calls)
	require.True(t, engine.existed, "staged audio must exist during inference")
	require.Equal(t, "sv", engine.req.Language)
	require.False(t, engine.req.Translate)
	require.Equal(t, "ggml-small.bin", filepath.Base(engine.req.ModelPath))
	require.Equal(t, ".mp3", filepath.Ext(engine.req.AudioPath))

	require.NoFileExists(t, engine.req.AudioPath, "staged audio must be removed after the run")
}

func TestServiceTranslateToSwedishForcesHint(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{Text: "hej"}}
	svc := newTestService(t, engine)

	out, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.ogg", Options{
		Language:    LanguageAuto,
		Translation: TranslateSwedish,
	})
	require.NoError(t, err)

	require.Equal(t, TaskTranslate, out.Task)
	require.Equal(t, "sv", out.Hint)
	require.Equal(t, "sv", engine.req.Language)
	require.True(t, engine.req.Translate)
}

func TestServiceAutoDetectLeavesHintEmpty(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{Text: "hello"}}
	svc := newTestService(t, engine)

	out, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.m4a", Options{
		Language:    LanguageAuto,
		Translation: TranslateNone,
	})
	require.NoError(t, err)

	require.Equal(t, TaskTranscribe, out.Task)
	require.Empty(t, out.Hint)
	require.Empty(t, engine.req.Language)
	require.False(t, engine.req.Translate)
}

func TestServiceExplicitModelSelection(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{Text: "hej"}}
	svc := newTestService(t, engine, "ggml-tiny.bin")

	out, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.flac", Options{Model: "tiny"})
	require.NoError(t, err)

	require.Equal(t, "tiny", out.Model)
	require.Equal(t, "ggml-tiny.bin", filepath.Base(engine.req.ModelPath))
}

func TestServiceRejectsUnsupportedUpload(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{}
	svc := newTestService(t, engine)

	_, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "notes.txt", Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, upload.ErrUnsupportedType))
	require.Zero(t, engine.calls)
}

func TestServiceMissingModel(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{}
	svc := newTestService(t, engine)

	_, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.mp3", Options{Model: "medium"})
	require.Error(t, err)
	require.True(t, errors.Is(err, whisper.ErrModelMissing))
	require.Zero(t, engine.calls)
}

func TestServiceEngineFailureStillCleansUp(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{err: errors.New("model file is corrupt")}
	svc := newTestService(t, engine)

	_, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.mp3", Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcription failed")
	require.Contains(t, err.Error(), "model file is corrupt")

	require.NotEmpty(t, engine.req.AudioPath)
	require.NoFileExists(t, engine.req.AudioPath)
}

func TestServiceReportsCleanupFailureWithoutDiscardingResult(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{
		result:      whisper.Result{Text: "Hej världen"},
		removeAudio: true,
	}
	svc := newTestService(t, engine)

	out, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.mp3", Options{})
	require.NoError(t, err)

	require.Equal(t, "Hej världen", out.Result.Text)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "could not be removed")
}

func TestServiceWarnsOnBlankTranscript(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{Text: "[BLANK_AUDIO]"}}
	svc := newTestService(t, engine)

	out, err := svc.Transcribe(context.Background(), strings.NewReader("x"), "clip.mp3", Options{})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "no speech")
}

func TestServiceWarnsOnSilentWAV(t *testing.T) {
	t.Parallel()

	engine := &capturingEngine{result: whisper.Result{Text: "ok"}}
	svc := newTestService(t, engine)

	silent := makePCM16WAVForTest(make([]int16, 16000), 16000)
	out, err := svc.Transcribe(context.Background(), bytes.NewReader(silent), "tyst.wav", Options{})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "nearly silent")
}

type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Transcribe(context.Context, whisper.Request) (whisper.Result, error) {
	close(e.started)
	<-e.release
	return whisper.Result{Text: "klart"}, nil
}

func TestServiceLimitsConcurrentJobs(t *testing.T) {
	t.Parallel()

	engine := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, engine)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Transcribe(context.Background(), strings.NewReader("x"), "first.mp3", Options{})
	}()

	<-engine.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Transcribe(ctx, strings.NewReader("y"), "second.mp3", Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcription slot")

	close(engine.release)
	wg.Wait()
	require.NoError(t, firstErr)
}

func makePCM16WAVForTest(samples []int16, sampleRate int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], []byte("RIFF"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], []byte("WAVE"))
	off += 4

	copy(out[off:], []byte("fmt "))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], []byte("data"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))
	off += 4

	for _, s := range samples {
		binary.LittleEndian.PutUint16(out[off:], uint16(s))
		off += 2
	}

	return out
}
