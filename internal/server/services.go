package server

import (
	"context"
	"fmt"

	"github.com/openmined/syftbox/internal/objectstore"
	"github.com/openmined/syftbox/internal/server/auth"
	"github.com/openmined/syftbox/internal/server/vaultservice"
)

// Services bundles the manifest service's dependencies, mirroring the
// teacher's Services struct shape: one field per domain service, a single
// Start/Shutdown pair wired up in NewServices.
type Services struct {
	Auth  *auth.Service
	Vault *vaultservice.Service
}

func NewServices(config *Config) (*Services, error) {
	store, err := objectstore.NewS3Store(&config.Store)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	authSvc := auth.New(&config.Auth)
	vaultSvc := vaultservice.New(store, vaultservice.DefaultPresignExpiry)

	return &Services{
		Auth:  authSvc,
		Vault: vaultSvc,
	}, nil
}

func (s *Services) Start(ctx context.Context) error {
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	return nil
}
