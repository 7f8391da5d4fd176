package servicing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wimserv/wimserv/internal/config"
)

func packagesEnv(t *testing.T, list string, provisioned []ProvisionedPackage) *testEnv {
	t.Helper()
	opts := config.NewOptions(t.TempDir())
	opts.PackageListFile = "remove.txt"
	env := newTestEnv(t, opts)
	writeWorkFile(t, opts, "remove.txt", list)
	env.packages.provisioned = provisioned
	return env
}

func TestPackagesPhase_RemovesUnionOfMatches(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "Contoso.*\n*Zune*\n", []ProvisionedPackage{
		{DisplayName: "Contoso.DemoApp", PackageName: "Contoso.DemoApp_1.0"},
		{DisplayName: "Microsoft.ZuneMusic", PackageName: "Microsoft.ZuneMusic_2019"},
		{DisplayName: "Microsoft.ZuneVideo", PackageName: "Microsoft.ZuneVideo_2019"},
		{DisplayName: "Fabrikam.Keeper", PackageName: "Fabrikam.Keeper_3.1"},
	})

	require.NoError(t, PackagesPhase{}.Run(env.ctx))

	assert.ElementsMatch(t,
		[]string{"Contoso.DemoApp_1.0", "Microsoft.ZuneMusic_2019", "Microsoft.ZuneVideo_2019"},
		env.ctx.State.RemovedPackages)
	assert.Empty(t, env.ctx.State.UnmatchedPatterns)
}

func TestPackagesPhase_UnmatchedPatternIsNotAnError(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "Contoso.DemoApp\n", []ProvisionedPackage{
		{DisplayName: "Fabrikam.Keeper", PackageName: "Fabrikam.Keeper_3.1"},
	})

	require.NoError(t, PackagesPhase{}.Run(env.ctx))

	assert.Empty(t, env.ctx.State.RemovedPackages)
	assert.Equal(t, []string{"Contoso.DemoApp"}, env.ctx.State.UnmatchedPatterns)
	assert.Contains(t, env.observer.eventTypes(), EventPatternUnmatched)
}

func TestPackagesPhase_MatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "contoso.demoapp\n", []ProvisionedPackage{
		{DisplayName: "Contoso.DemoApp", PackageName: "Contoso.DemoApp_1.0"},
	})

	require.NoError(t, PackagesPhase{}.Run(env.ctx))
	assert.Equal(t, []string{"Contoso.DemoApp_1.0"}, env.ctx.State.RemovedPackages)
}

func TestPackagesPhase_OverlappingPatternsRemoveOnce(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "Contoso.*\nContoso.DemoApp\n", []ProvisionedPackage{
		{DisplayName: "Contoso.DemoApp", PackageName: "Contoso.DemoApp_1.0"},
	})

	require.NoError(t, PackagesPhase{}.Run(env.ctx))

	removes := 0
	for _, c := range env.log.calls {
		if c == "remove Contoso.DemoApp_1.0" {
			removes++
		}
	}
	assert.Equal(t, 1, removes)
	assert.Equal(t, []string{"Contoso.DemoApp_1.0"}, env.ctx.State.RemovedPackages)
}

func TestPackagesPhase_RemovalFailureIsWarning(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "*\n", []ProvisionedPackage{
		{DisplayName: "Contoso.DemoApp", PackageName: "Contoso.DemoApp_1.0"},
		{DisplayName: "Fabrikam.Keeper", PackageName: "Fabrikam.Keeper_3.1"},
	})
	env.packages.removeErr = map[string]error{
		"Contoso.DemoApp_1.0": errors.New("package is in use"),
	}

	require.NoError(t, PackagesPhase{}.Run(env.ctx))

	assert.Equal(t, []string{"Fabrikam.Keeper_3.1"}, env.ctx.State.RemovedPackages)
	require.Len(t, env.ctx.State.Warnings, 1)
	assert.Equal(t, "packages", env.ctx.State.Warnings[0].Phase)
}

func TestPackagesPhase_ListFailureIsFatal(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "Contoso.*\n", nil)
	env.packages.listErr = errors.New("image not mounted")

	err := PackagesPhase{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enumerate")
}

func TestPackagesPhase_EmptyListDoesNothing(t *testing.T) {
	t.Parallel()
	env := packagesEnv(t, "# only comments\n\n", nil)

	require.NoError(t, PackagesPhase{}.Run(env.ctx))
	assert.Empty(t, env.log.calls, "no enumeration when there are no patterns")
}
