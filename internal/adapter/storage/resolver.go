package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// Opener creates a connection of one storage type.
type Opener func(ctx context.Context, cfg StorageConfig, name string) (StorageConnection, error)

var (
	openers   = make(map[string]Opener)
	openersMu sync.RWMutex
)

// RegisterOpener registers the Opener of a storage type.
func RegisterOpener(storageType string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if _, exists := openers[storageType]; exists {
		logger.Warnf("Storage opener for type '%s' already registered. Overwriting.", storageType)
	}
	openers[storageType] = opener
}

func getOpener(storageType string) (Opener, error) {
	openersMu.RLock()
	defer openersMu.RUnlock()
	opener, ok := openers[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type: %s", storageType)
	}
	return opener, nil
}

// Resolver opens storage connections from config.Config.Storage and caches them by name.
type Resolver struct {
	cfg         *config.Config
	connections map[string]StorageConnection
	mu          sync.Mutex
}

// NewResolver creates a Resolver.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg, connections: make(map[string]StorageConnection)}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *Resolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.connections[name]; ok {
		return conn, nil
	}

	raw, ok := r.cfg.Storage[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration '%s' not found", name)
	}
	storageCfg, err := DecodeConfig(name, raw)
	if err != nil {
		return nil, err
	}
	opener, err := getOpener(storageCfg.Type)
	if err != nil {
		return nil, err
	}
	conn, err := opener(ctx, storageCfg, name)
	if err != nil {
		return nil, err
	}
	r.connections[name] = conn
	logger.Infof("Opened storage connection: %s (%s)", name, storageCfg.Type)
	return conn, nil
}

// CloseAll closes every opened connection.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lastErr error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close storage connection '%s': %v", name, err)
			lastErr = err
		}
		delete(r.connections, name)
	}
	return lastErr
}
