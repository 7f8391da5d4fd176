package servicing

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wimserv/wimserv/internal/config"
	"github.com/wimserv/wimserv/internal/regfile"
)

const goodRegFile = `Windows Registry Editor Version 5.00

[HKEY_LOCAL_MACHINE\OFFLINE_SOFTWARE\Microsoft\Windows\CurrentVersion\Policies]
"DisableConsumerFeatures"=dword:00000001

[HKEY_LOCAL_MACHINE\OFFLINE_SYSTEM\Setup\LabConfig]
"BypassTPMCheck"=dword:00000001

[HKEY_LOCAL_MACHINE\OFFLINE_DEFAULT\Software\Policies]
"NoTips"=dword:00000001
`

func registryEnv(t *testing.T, regContent string) *testEnv {
	t.Helper()
	opts := config.NewOptions(t.TempDir())
	opts.RegistryFile = "tweaks.reg"
	env := newTestEnv(t, opts)
	writeWorkFile(t, opts, "tweaks.reg", regContent)
	return env
}

func TestHiveBindings_FixedOrderAndPaths(t *testing.T) {
	t.Parallel()
	bindings := HiveBindings("mnt")

	require.Len(t, bindings, 3)
	assert.Equal(t, regfile.AliasSoftware, bindings[0].Alias)
	assert.Equal(t, regfile.AliasSystem, bindings[1].Alias)
	assert.Equal(t, regfile.AliasDefault, bindings[2].Alias)
	assert.Equal(t, filepath.Join("mnt", "Windows", "System32", "config", "SOFTWARE"), bindings[0].HivePath)
	assert.Equal(t, filepath.Join("mnt", "Windows", "System32", "config", "SYSTEM"), bindings[1].HivePath)
	assert.Equal(t, filepath.Join("mnt", "Users", "Default", "ntuser.dat"), bindings[2].HivePath)
}

func TestRegistryPhase_LoadsImportsUnloads(t *testing.T) {
	t.Parallel()
	env := registryEnv(t, goodRegFile)

	require.NoError(t, RegistryPhase{}.Run(env.ctx))

	aliases := []string{regfile.AliasSoftware, regfile.AliasSystem, regfile.AliasDefault}
	assert.Equal(t, aliases, env.ctx.State.HivesLoaded)
	assert.Equal(t, aliases, env.ctx.State.HivesUnloaded)

	// import happens between the last load and the first unload
	calls := env.log.calls
	require.Len(t, calls, 7)
	assert.Contains(t, calls[3], "import")
	assert.Contains(t, env.observer.eventTypes(), EventRegistryImported)
}

func TestRegistryPhase_UnknownAliasRejectedBeforeLoad(t *testing.T) {
	t.Parallel()
	env := registryEnv(t, `Windows Registry Editor Version 5.00

[HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows]
"Oops"=dword:00000001
`)

	err := RegistryPhase{}.Run(env.ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, regfile.ErrUnknownAlias)
	assert.Empty(t, env.log.calls, "no hive may be loaded for a rejected file")
}

func TestRegistryPhase_ImportFailureStillUnloads(t *testing.T) {
	t.Parallel()
	env := registryEnv(t, goodRegFile)
	env.registry.importErr = errors.New("access denied on 3 keys")

	require.NoError(t, RegistryPhase{}.Run(env.ctx), "import trouble is the operator's call at the prompt")

	assert.Equal(t, env.ctx.State.HivesLoaded, env.ctx.State.HivesUnloaded)
	require.Len(t, env.ctx.State.Warnings, 1)
	assert.Equal(t, "registry", env.ctx.State.Warnings[0].Phase)
}

func TestRegistryPhase_PartialLoadFailureUnloadsLoaded(t *testing.T) {
	t.Parallel()
	env := registryEnv(t, goodRegFile)
	env.hives.loadErr = map[string]error{
		regfile.AliasSystem: errors.New("hive file locked"),
	}

	err := RegistryPhase{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load hive")
	assert.Equal(t, []string{regfile.AliasSoftware}, env.ctx.State.HivesLoaded)
	assert.Equal(t, []string{regfile.AliasSoftware}, env.ctx.State.HivesUnloaded,
		"the hive loaded before the failure is released")
}

func TestRegistryPhase_UnloadFailureIsWarning(t *testing.T) {
	t.Parallel()
	env := registryEnv(t, goodRegFile)
	env.hives.unloadErr = map[string]error{
		regfile.AliasDefault: errors.New("handle still open"),
	}

	require.NoError(t, RegistryPhase{}.Run(env.ctx))

	assert.Equal(t, []string{regfile.AliasSoftware, regfile.AliasSystem}, env.ctx.State.HivesUnloaded)
	require.Len(t, env.ctx.State.Warnings, 1)
	assert.Contains(t, env.ctx.State.Warnings[0].Err.Error(), "failed to unload")
}

func TestRegistryPhase_MissingFileIsFatal(t *testing.T) {
	t.Parallel()
	opts := config.NewOptions(t.TempDir())
	opts.RegistryFile = "absent.reg"
	env := newTestEnv(t, opts)

	err := RegistryPhase{}.Run(env.ctx)

	require.Error(t, err)
	assert.Empty(t, env.log.calls)
}
