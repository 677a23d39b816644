package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tolka/tolka/internal/logging"
	"github.com/tolka/tolka/internal/platform"
	"github.com/tolka/tolka/internal/version"
	"github.com/tolka/tolka/internal/whisper"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	addr         string
	origins      []string
	model        string
	modelDir     string
	whisperBin   string
	autoDownload bool
	preload      bool
	maxJobs      int

	logger *zap.Logger
	out    io.Writer

	serveFn func(ctx context.Context) error
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		addr:         "127.0.0.1:8080",
		model:        whisper.DefaultModel,
		autoDownload: true,
		maxJobs:      1,
		out:          os.Stdout,
	}
	app.serveFn = app.runServe
	return newRootCmd(app)
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tolka",
		Short:         "Serve a local web app that transcribes audio with whisper",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			serveFn := app.serveFn
			if serveFn == nil {
				serveFn = app.runServe
			}
			return serveFn(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindServerFlags(cmd, app)

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Default model name, or a model file path")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindServerFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.addr, "addr", app.addr, "Listen address for the web app")
	cmd.Flags().StringSliceVar(&app.origins, "allow-origin", app.origins, "Extra browser origins allowed to call the API")
	cmd.Flags().StringVar(&app.whisperBin, "whisper-bin", app.whisperBin, "Path to the whisper-cli executable")
	cmd.Flags().BoolVar(&app.preload, "preload", app.preload, "Resolve and download the model before serving")
	cmd.Flags().IntVar(&app.maxJobs, "max-jobs", app.maxJobs, "Maximum concurrent transcription jobs")
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
