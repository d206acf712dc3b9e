package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
)

// NewConversationStore opens the backend selected by STORE_BACKEND.
func NewConversationStore(ctx context.Context, cfg *config.Config) (core.ConversationStore, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres, "":
		c, err := NewDatabaseClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.StoreMongo:
		c, err := NewMongoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.StoreMemory:
		return NewMemoryClient(), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
