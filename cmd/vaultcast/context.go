package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vaultcast/internal/api"
	"vaultcast/internal/backend"
	"vaultcast/internal/config"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/notifications"
	"vaultcast/internal/sqlitedb"
	"vaultcast/internal/workflow"
)

// errDaemonRunning is returned by commands that need the daemon lock.
var errDaemonRunning = errors.New("the vaultcast daemon is running; stop it or use its HTTP API")

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// workspace bundles the stores and services a local command works with.
type workspace struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sqlitedb.DB
	provider  *backend.Client
	manager   *workflow.Manager
	notebooks *api.NotebookService
	episodes  *api.EpisodeService
	lock      *flock.Flock
}

// openWorkspace opens the database and wires the in-process services. An
// exclusive workspace holds the daemon lock so generation and deletion never
// race a running daemon.
func (c *commandContext) openWorkspace(exclusive bool) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	ws := &workspace{cfg: cfg}
	if exclusive {
		ws.lock = flock.New(cfg.LockPath())
		ok, err := ws.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, errDaemonRunning
		}
	}

	ws.logger, err = cliLogger(cfg)
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.db, err = sqlitedb.Open(cfg.DatabasePath())
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := notebook.NewStore(ws.db)
	var jobStore jobs.Store = jobs.NewMemoryStore()
	if cfg.Generation.PersistJobs {
		jobStore = jobs.NewSQLStore(ws.db)
	}
	ws.provider = backend.NewClient(cfg, ws.logger)
	ws.manager, err = workflow.NewManager(cfg, workflow.Dependencies{
		Notebooks: store,
		Jobs:      jobStore,
		Provider:  ws.provider,
		Notifier:  notifications.NewService(cfg),
		Logger:    ws.logger,
	})
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("workflow manager: %w", err)
	}

	ingester := notebook.NewIngester(cfg.SourceFetchTimeout())
	ws.notebooks = api.NewNotebookService(store, ingester, ws.manager)
	ws.episodes = api.NewEpisodeService(ws.manager, store)
	return ws, nil
}

// Close stops generation (keeping checkpoints), closes the database and
// releases the lock.
func (ws *workspace) Close() {
	if ws.manager != nil {
		ws.manager.Stop()
	}
	if ws.db != nil {
		_ = ws.db.Close()
	}
	if ws.lock != nil {
		_ = ws.lock.Unlock()
	}
}

// cliLogger writes to the log directory only so command output stays clean.
func cliLogger(cfg *config.Config) (*slog.Logger, error) {
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "vaultcast-cli.log")},
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
