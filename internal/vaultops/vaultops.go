// Package vaultops exposes the vault operations used by runs and replays,
// with create and delete driven through the retry engine.
package vaultops

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/reliability"
)

// RandomNamePrefix starts every generated vault name.
const RandomNamePrefix = "RANDOM-VAULT-"

// VaultCreator creates one vault, retrying as configured.
type VaultCreator interface {
	CreateVault(ctx context.Context, name string) (optool.CreateVaultResponse, error)
}

// VaultDeleter deletes one vault by id or name, retrying as configured.
type VaultDeleter interface {
	DeleteVault(ctx context.Context, identifier string) error
}

// InventoryLister lists the existing vaults once.
type InventoryLister interface {
	ListVaults(ctx context.Context) ([]optool.VaultRecord, error)
}

// IdentityProvider reports who op is signed in as.
type IdentityProvider interface {
	WhoAmI(ctx context.Context) (optool.WhoAmIResponse, error)
}

// Service implements every operation interface on top of an op client.
type Service struct {
	client   *optool.Client
	executor *reliability.RetryExecutor
}

// NewService creates a service. Create and delete go through executor;
// listing and identity are single attempts.
func NewService(client *optool.Client, executor *reliability.RetryExecutor) *Service {
	return &Service{client: client, executor: executor}
}

// CreateVault creates name and returns the validated response.
func (s *Service) CreateVault(ctx context.Context, name string) (optool.CreateVaultResponse, error) {
	return reliability.Execute(ctx, s.executor, func(ctx context.Context) optool.OperationResult {
		return s.client.CreateVault(ctx, name)
	}, optool.DecodeCreateVault)
}

// DeleteVault deletes the vault with the given id or name.
func (s *Service) DeleteVault(ctx context.Context, identifier string) error {
	return s.executor.Run(ctx, func(ctx context.Context) optool.OperationResult {
		return s.client.DeleteVault(ctx, identifier)
	})
}

// ListVaults returns the current inventory.
func (s *Service) ListVaults(ctx context.Context) ([]optool.VaultRecord, error) {
	return s.client.ListVaults(ctx)
}

// WhoAmI returns the signed-in identity.
func (s *Service) WhoAmI(ctx context.Context) (optool.WhoAmIResponse, error) {
	return s.client.WhoAmI(ctx)
}

// RandomVaultName returns RandomNamePrefix followed by 8 upper-case hex characters.
func RandomVaultName() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RandomNamePrefix + strings.ToUpper(hex[:8])
}
