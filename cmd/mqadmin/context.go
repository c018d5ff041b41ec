package main

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// adminStore is the slice of store.Store the admin commands write through.
type adminStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

type commandContext struct {
	openStore func(ctx context.Context) (adminStore, func(), error)
	migrate   func(databaseURL, dir string) error
}

func newCommandContext() *commandContext {
	return &commandContext{
		openStore: openPostgresStore,
		migrate:   store.RunMigrations,
	}
}

func (c *commandContext) withStore(ctx context.Context, fn func(adminStore) error) error {
	s, closeFn, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(s)
}

func openPostgresStore(ctx context.Context) (adminStore, func(), error) {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := store.Connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}
