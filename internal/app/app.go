package app

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/ivyready/internal/api/handlers"
	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
	db "github.com/markdave123-py/ivyready/internal/core/database"
	objectclient "github.com/markdave123-py/ivyready/internal/core/object-client"
	"github.com/markdave123-py/ivyready/internal/services"
)

type App struct {
	Store        core.ConversationStore
	ObjectClient core.ObjectClient
	Server       *Server

	shutdownTimeout time.Duration
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewConversationStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("conversation store initialized and ready")

	objClient, err := objectclient.NewObjectClient(appCtx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Info().Str("backend", cfg.AttachmentBackend).
		Str("max_upload_size", humanize.IBytes(uint64(cfg.MaxUploadSize))).
		Msg("attachment store initialized and ready")

	convService := services.NewConversationService(store, objClient)
	server := NewServer(cfg, handlers.NewConversationHandler(convService))

	return &App{
		Store:           store,
		ObjectClient:    objClient,
		Server:          server,
		shutdownTimeout: time.Duration(cfg.ShutdownTimeout) * time.Second,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts the
// server down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
