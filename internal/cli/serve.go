package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tolka/tolka/internal/platform"
	"github.com/tolka/tolka/internal/server"
	"github.com/tolka/tolka/internal/transcribe"
	"github.com/tolka/tolka/internal/version"
	"github.com/tolka/tolka/internal/whisper"
)

const shutdownTimeout = 30 * time.Second

// runServe wires the whisper engine, the model cache and the transcription
// service into the HTTP server, then blocks until the context is cancelled
// or a termination signal arrives.
func (a *appState) runServe(ctx context.Context) error {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return err
	}

	engine, err := whisper.NewCLIEngine(a.whisperBin, a.log())
	if err != nil {
		return err
	}

	models := whisper.NewCache(whisper.CacheOptions{
		Dir:          modelDir,
		AutoDownload: a.autoDownload,
		NoProgress:   a.noProgress,
		Logger:       a.log(),
	})

	if a.preload {
		stop := startSpinner(a.progressEnabled(), fmt.Sprintf("Preparing model %s...", a.model))
		err := models.Preload(ctx, a.model)
		stop()
		if err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Addr:    a.addr,
		Origins: a.origins,
		Version: version.Resolve(),
	}, server.Deps{
		Service:      transcribe.New(engine, models, a.log(), a.maxJobs),
		ModelDir:     modelDir,
		DefaultModel: a.model,
		Logger:       a.log(),
	})

	if err := srv.StartAsync(); err != nil {
		return err
	}

	rt := platform.CurrentRuntime()
	a.log().Info("tolka started",
		zap.String("addr", srv.Addr()),
		zap.String("engine", engine.Executable),
		zap.String("model_dir", modelDir),
		zap.String("os", rt.OS),
		zap.String("arch", rt.Arch),
	)
	fmt.Fprintf(a.outWriter(), "tolka listening on http://%s\n", srv.Addr())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shut down http server: %w", err)
	}

	a.log().Info("tolka stopped")
	return nil
}
