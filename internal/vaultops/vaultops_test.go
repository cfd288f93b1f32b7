package vaultops

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/optool/optooltest"
	"github.com/hengadev/opvault/internal/reliability"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newService(runner optool.Runner, maxAttempts int) *Service {
	client := optool.NewClient(runner, optool.NewClassifier(""), zap.NewNop())
	executor := reliability.NewRetryExecutor(
		reliability.NewFixedDelayPolicy(maxAttempts, time.Minute, nil),
		reliability.ExecutorOptions{Sleep: noSleep},
	)
	return NewService(client, executor)
}

func TestService_CreateVaultRetriesRateLimit(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultCreate, optooltest.RateLimited(), optooltest.OK(optooltest.CreatedVault("v1", "alpha - admin")))

	resp, err := newService(runner, 3).CreateVault(context.Background(), "alpha - admin")

	require.NoError(t, err)
	assert.Equal(t, "v1", resp.ID)
	assert.Len(t, runner.Calls(optool.CommandVaultCreate), 2)
}

func TestService_CreateVaultOutputParseError(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultCreate, optooltest.OK(`{"name":"alpha - admin"}`))

	_, err := newService(runner, 3).CreateVault(context.Background(), "alpha - admin")

	assert.True(t, optool.IsOutputParse(err))
	assert.Len(t, runner.Calls(optool.CommandVaultCreate), 1)
}

func TestService_DeleteVault(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultDelete, optooltest.RateLimited(), optooltest.RateLimited())

	err := newService(runner, 2).DeleteVault(context.Background(), "v1")
	assert.True(t, optool.IsRateLimited(err))
	assert.Len(t, runner.Calls(optool.CommandVaultDelete), 2)

	runner.Queue(optool.CommandVaultDelete, optooltest.Fail(1, "[ERROR] vault not found"))
	err = newService(runner, 2).DeleteVault(context.Background(), "v1")
	assert.True(t, optool.IsCommandFailure(err))
}

func TestService_ListAndWhoAmI(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultList, optooltest.OK(optooltest.VaultList([2]string{"1", "a"}))).
		Queue(optool.CommandWhoAmI, optooltest.OK(optooltest.WhoAmI("U")))
	s := newService(runner, 3)

	vaults, err := s.ListVaults(context.Background())
	require.NoError(t, err)
	assert.Len(t, vaults, 1)

	who, err := s.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "U", who.UserUUID)
}

func TestRandomVaultName(t *testing.T) {
	name := RandomVaultName()
	assert.Regexp(t, regexp.MustCompile(`^RANDOM-VAULT-[0-9A-F]{8}$`), name)
	assert.NotEqual(t, name, RandomVaultName())
}
