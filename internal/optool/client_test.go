package optool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hengadev/opvault/internal/optool"
	"github.com/hengadev/opvault/internal/optool/optooltest"
)

func newClient(r optool.Runner) *optool.Client {
	return optool.NewClient(r, optool.NewClassifier(""), zap.NewNop())
}

func TestClient_AppendsFormatFlagToJSONCommands(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Handle(optool.CommandVaultCreate, optooltest.EchoCreate()).
		Handle(optool.CommandVaultDelete, optooltest.EchoDelete())
	c := newClient(runner)
	ctx := context.Background()

	res := c.CreateVault(ctx, "alpha - admin")
	assert.True(t, res.Succeeded())
	res = c.DeleteVault(ctx, "vault-001")
	assert.True(t, res.Succeeded())

	creates := runner.Calls(optool.CommandVaultCreate)
	require.Len(t, creates, 1)
	assert.Equal(t, []string{"vault", "create", "alpha - admin", "--format=json"}, creates[0].Args)

	deletes := runner.Calls(optool.CommandVaultDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, []string{"vault", "delete", "vault-001"}, deletes[0].Args)
}

func TestClient_ListVaults(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultList, optooltest.OK(optooltest.VaultList([2]string{"id1", "alpha - admin"})))

	vaults, err := newClient(runner).ListVaults(context.Background())
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, "id1", vaults[0].ID)
}

func TestClient_ListVaultsFailure(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandVaultList, optooltest.Fail(1, "[ERROR] not signed in"))

	_, err := newClient(runner).ListVaults(context.Background())
	assert.True(t, optool.IsCommandFailure(err))
}

func TestClient_WhoAmI(t *testing.T) {
	runner := optooltest.NewScriptedRunner().
		Queue(optool.CommandWhoAmI, optooltest.OK(optooltest.WhoAmI("USER-1")))

	who, err := newClient(runner).WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USER-1", who.UserUUID)
	assert.Equal(t, "SERVICE_ACCOUNT", who.UserType)
}
