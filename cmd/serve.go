package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"video2audio/application/conversion"
	"video2audio/application/lifecycle"
	"video2audio/infrastructure/config"
	"video2audio/infrastructure/ffmpeg"
	"video2audio/infrastructure/filesystem"
	"video2audio/infrastructure/web"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LockFileName is created in the uploads directory while a server owns it
const LockFileName = ".video2audio.lock"

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front end",
	Long: `Serve the upload and conversion front end.

Uploaded files are queued as pending, converted in background batches and
listed as processed once their audio file exists. Only one server may use a
given uploads directory at a time.

Example:
  video2audio serve
  video2audio serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		c.Server.Address = serveAddr
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunServe(ctx, c, logger)
}

// RunServe prepares storage, takes the server lock and serves until ctx is done
func RunServe(ctx context.Context, c *config.Config, logger *zap.Logger) error {
	if err := ensureStorage(c.Paths); err != nil {
		return err
	}

	lockPath := filepath.Join(c.Paths.UploadsDirectory, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another server is already using %s", c.Paths.UploadsDirectory)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", zap.Error(err))
		}
	}()

	manager := newManager(c, logger)
	handler := web.NewHandler(manager, c.Paths.UploadsDirectory, c.Paths.ProcessedDirectory, logger)
	app := web.NewApp(handler, c.Server.MaxUploadMB)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", c.Server.Address),
			zap.String("lock", lockPath))
		errCh <- app.Listen(c.Server.Address)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("batches still running at exit", zap.Error(err))
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}

// newManager wires the conversion pipeline behind a lifecycle manager
func newManager(c *config.Config, logger *zap.Logger) *lifecycle.Manager {
	checker := filesystem.NewChecker()
	prober := ffmpeg.NewProber(
		ffmpeg.WithFFprobePath(c.FFmpeg.FFprobePath),
		ffmpeg.WithProbeTimeout(c.FFmpeg.Timeout),
	)
	encoder := ffmpeg.NewEncoder(
		ffmpeg.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		ffmpeg.WithTimeout(c.FFmpeg.Timeout),
	)
	converter := conversion.NewService(prober, encoder, checker,
		conversion.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		conversion.WithLogger(logger),
	)

	return lifecycle.NewManager(converter, checker, c.Paths.UploadsDirectory, c.Paths.ProcessedDirectory,
		lifecycle.WithLogger(logger),
		lifecycle.WithMaxConcurrent(c.Workers.MaxConcurrent),
		lifecycle.WithSettings(c.AudioSettings()),
	)
}

// ensureStorage creates the storage directories; processing is reserved but still created
func ensureStorage(p config.PathsConfig) error {
	for _, dir := range []string{p.UploadsDirectory, p.ProcessingDirectory, p.ProcessedDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
