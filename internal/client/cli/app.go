package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/client/config"
	"github.com/dmitrijs2005/daykeeper/internal/client/services"
	"github.com/dmitrijs2005/daykeeper/internal/logging"

	_ "modernc.org/sqlite"
)

// App is the interactive client: local storage, sync engine and REPL state.
type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    *client.Repositories
	remote   client.Client
	entities *services.EntityService
	syncer   *services.Syncer
	calendar *services.CalendarService
	watcher  *services.OnlineWatcher

	userID string
	reader *bufio.Reader
}

// NewApp opens the local database and wires the services. provider may be
// nil when the platform exposes no external calendar; the mirror command
// then does nothing.
func NewApp(ctx context.Context, c *config.Config, provider services.CalendarProvider, logger logging.Logger) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	remote := client.NewHTTPClient(c.ServerBaseURL)
	clock := services.SystemClock()

	syncer := services.NewSyncer(repos, remote, clock, logger,
		c.BaseRetryDelay, c.MaxRetries, c.SyncInterval)
	watcher := services.NewOnlineWatcher(remote, c.OnlineCheckInterval, syncer.TriggerSync, logger)

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		remote:   remote,
		entities: services.NewEntityService(repos, remote, watcher.IsOnline, clock, logger),
		syncer:   syncer,
		calendar: services.NewCalendarService(repos, provider, clock, logger, c.MirrorCooldown),
		watcher:  watcher,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the connectivity watcher and the sync loop, then blocks in the
// REPL until the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	go a.watcher.Run(ctx)
	go a.syncer.Run(ctx)

	fmt.Println("Welcome to daykeeper (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)

	if err := a.remote.Close(); err != nil {
		a.logger.Warn(ctx, "failed to close transport", "error", err)
	}
	return a.repos.DB.Close()
}

func (a *App) isLoggedIn() bool {
	return a.userID != ""
}

func (a *App) status() string {
	mode := "offline"
	if a.watcher.IsOnline() {
		mode = "online"
	}
	if a.userID == "" {
		return "(" + mode + ")"
	}
	return "(" + a.userID + " " + mode + ")"
}
