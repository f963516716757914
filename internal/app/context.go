package app

import (
	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/config"
	"github.com/datallboy/gocol/internal/infra/logger"
)

// Store persists transfer history. The engine records every state change
// through it without importing the store package.
type Store interface {
	SaveTransfer(t *domain.Transfer) error
	GetTransfer(id string) (*domain.Transfer, error)
	ListTransfers(limit int) ([]*domain.Transfer, error)
	Close() error
}

// ManifestCache keeps the last manifest fetched from each console.
type ManifestCache interface {
	Get(consoleID string) (*domain.Metadata, error)
	Put(consoleID string, md *domain.Metadata) error
	Exists(consoleID string) bool
}

// Context holds the core environment and shared resources for gocol.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// Optional; nil when the command does not need them
	Store Store
	Cache ManifestCache
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}

// Close releases whatever resources were attached to the context.
func (c *Context) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
