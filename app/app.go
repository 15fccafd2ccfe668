package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/database"
	"github.com/authcove/authcove/handlers"
	"github.com/authcove/authcove/server"
	"github.com/authcove/authcove/services/auth"
	"github.com/authcove/authcove/services/events"
	"github.com/authcove/authcove/services/heartbeat"
	"github.com/authcove/authcove/services/logging"
	"github.com/authcove/authcove/services/mail"
	"github.com/authcove/authcove/services/media"
	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/services/verification"
	"github.com/authcove/authcove/store"
	"go.uber.org/fx"
)

type App struct {
	fx *fx.App
}

// New assembles the full application graph. A nil cfg loads configuration
// from the environment.
func New(cfg *config.Config) *App {
	return &App{
		fx: fx.New(
			config.NewProvider(cfg),
			fx.Provide(func() *database.ModelsOption {
				return database.WithModels(&store.User{})
			}),
			logging.Module,
			database.Module,
			store.Module,
			password.Module,
			token.Module,
			auth.Module,
			verification.Module,
			mail.Module,
			media.Module,
			events.Module,
			heartbeat.Module,
			server.NewProvider(),
			handlers.Module,
		),
	}
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}
