package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katje/colorizer/config"
	"github.com/katje/colorizer/db"
	"github.com/katje/colorizer/gallery"
	"github.com/katje/colorizer/gemini"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/queue"
	"github.com/katje/colorizer/server"
	"github.com/katje/colorizer/sink"
	"github.com/katje/colorizer/sym"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the colorizer daemon",
	Long: `Start the daemon: restore the persisted queue, open the operator
surface, and begin processing jobs against the generative image API.

The API key is read from the gemini.api_key config value or the
KATJE_GEMINI_API_KEY environment variable.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
}

// settingsState holds the live generation settings. The operator surface
// replaces the record; the watcher refreshes it when settings.toml changes
// on disk.
type settingsState struct {
	mu sync.RWMutex
	s  gemini.Settings
}

func (st *settingsState) get() gemini.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *settingsState) set(s gemini.Settings) {
	st.mu.Lock()
	st.s = s
	st.mu.Unlock()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetTheme(cfg.GetServerLogTheme())
	log := logger.Logger

	verbosity, _ := cmd.Flags().GetCount("verbose")
	if logger.ShouldOutput(verbosity, logger.OutputConfig) {
		fmt.Println(cfg.String())
	}

	port := cfg.GetServerPort()
	if flagPort, _ := cmd.Flags().GetInt("port"); flagPort > 0 {
		port = flagPort
	}

	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("no API key configured; set gemini.api_key or KATJE_GEMINI_API_KEY")
	}

	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	settings := &settingsState{}
	settings.set(cfg.Generation.Normalize())

	jour := journal.New()
	q := queue.NewQueue(queue.NewStore(conn, log), log)
	gal := gallery.New(conn, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gemini.New(ctx, cfg.Gemini.APIKey, settings.get, log)
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}

	if err := os.MkdirAll(cfg.Sink.OutputDir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	snk := sink.New(sink.DirSave(cfg.Sink.OutputDir), jour, log)
	if cfg.Sink.CooldownMS > 0 {
		snk.SetCooldown(time.Duration(cfg.Sink.CooldownMS) * time.Millisecond)
	}

	sched := queue.NewScheduler(q, client, gal, snk, jour,
		func() queue.Options {
			s := settings.get()
			return queue.Options{
				StoryEnabled:  s.StoryActive(),
				ReportEnabled: s.ReportEnabled,
			}
		},
		queue.SchedulerConfig{
			Concurrency:         cfg.Queue.Concurrency,
			MinDispatchInterval: time.Duration(cfg.Queue.MinDispatchIntervalMS) * time.Millisecond,
			CallTimeout:         time.Duration(cfg.Queue.CallTimeoutSeconds) * time.Second,
		},
		log,
	)

	srv := server.New(server.Options{
		Queue:          q,
		Gallery:        gal,
		Journal:        jour,
		Settings:       settings.get,
		SaveSettings: func(s gemini.Settings) error {
			if err := config.SaveGenerationSettings(s); err != nil {
				return err
			}
			settings.set(s)
			return nil
		},
		AllowedOrigins: cfg.GetServerAllowedOrigins(),
		Logger:         log,
	})

	watcher := startSettingsWatcher(settings, log)
	if watcher != nil {
		defer watcher.Stop()
	}

	log.Infow(sym.Open+" Katje Colorizer starting",
		logger.FieldPort, port,
		logger.FieldPath, cfg.GetDatabasePath(),
		"output_dir", cfg.Sink.OutputDir,
		"jobs_restored", q.Len(),
	)

	sched.Start()
	srv.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Infow(sym.Close + " Shutting down")
	}

	sched.Stop()
	snk.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Server shutdown incomplete",
			logger.FieldError, err,
		)
	}

	return nil
}

// startSettingsWatcher follows settings.toml so edits made outside the
// operator surface take effect without a restart. Watch failures are
// non-fatal; the daemon just loses live reload.
func startSettingsWatcher(settings *settingsState, log *zap.SugaredLogger) *config.ConfigWatcher {
	watcher, err := config.NewConfigWatcher(config.SettingsPath())
	if err != nil {
		log.Warnw("Settings file watch unavailable",
			logger.FieldError, err,
		)
		return nil
	}

	watcher.OnReload(func(cfg *config.Config) error {
		settings.set(cfg.Generation.Normalize())
		log.Infow("Generation settings reloaded from disk")
		return nil
	})

	config.SetGlobalWatcher(watcher)
	watcher.Start()
	return watcher
}
