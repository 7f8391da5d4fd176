package servicing

import (
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/wimserv/wimserv/internal/regfile"
)

// HiveBinding ties one reserved alias to a hive file inside the mounted image.
type HiveBinding struct {
	Alias    string
	HivePath string
}

// HiveBindings returns the fixed alias-to-hive mapping for a mount dir, in
// load order. Unload happens in the same order.
func HiveBindings(mountDir string) []HiveBinding {
	return []HiveBinding{
		{Alias: regfile.AliasSoftware, HivePath: filepath.Join(mountDir, "Windows", "System32", "config", "SOFTWARE")},
		{Alias: regfile.AliasSystem, HivePath: filepath.Join(mountDir, "Windows", "System32", "config", "SYSTEM")},
		{Alias: regfile.AliasDefault, HivePath: filepath.Join(mountDir, "Users", "Default", "ntuser.dat")},
	}
}

// RegistryPhase applies the registry-modification file against the image's
// offline hives.
//
// The file is parsed and its alias contract validated before any hive is
// loaded. Once hives are loaded they are always unloaded again, in the fixed
// order, whether or not the import succeeded; an import failure becomes a
// warning the operator weighs at the disposition prompt.
type RegistryPhase struct{}

// Name implements Phase.
func (RegistryPhase) Name() string { return "registry" }

// Run implements Phase.
func (RegistryPhase) Run(ctx *Context) error {
	path := ctx.Options.RegistryFilePath()

	f, err := regfile.Load(path)
	if err != nil {
		return err
	}
	if err := f.ValidateAliases(); err != nil {
		return err
	}
	ctx.Observer.Printf("[registry] %s references %d keys across the offline hive aliases", path, len(f.Keys))

	bindings := HiveBindings(ctx.Options.MountPath())

	var loaded []HiveBinding
	for _, b := range bindings {
		if err := ctx.Hives.LoadHive(ctx, b.Alias, b.HivePath); err != nil {
			unloadHives(ctx, loaded)
			return fmt.Errorf("failed to load hive %s at %s: %w", b.HivePath, b.Alias, err)
		}
		loaded = append(loaded, b)
		ctx.State.HivesLoaded = append(ctx.State.HivesLoaded, b.Alias)
		LogHiveLoaded(ctx.Observer, b.Alias, b.HivePath)
	}

	if err := ctx.Registry.Import(ctx, path); err != nil {
		LogWarning(ctx, "registry", fmt.Errorf("registry import reported errors: %w", err))
	} else {
		ctx.Observer.Event(Event{
			Type:    EventRegistryImported,
			Phase:   "registry",
			Message: "registry modifications applied",
		})
	}

	// The hive files must not be held open when the image is committed or
	// discarded. Dropping references and forcing a collection before unload
	// is advisory only, not a guarantee.
	reclaimHandles()

	unloadHives(ctx, loaded)
	return nil
}

// unloadHives releases the loaded aliases in load order. Failures become
// warnings rather than aborting: a remaining alias is surfaced before the
// disposition prompt, where the operator can still discard.
func unloadHives(ctx *Context, loaded []HiveBinding) {
	for _, b := range loaded {
		if err := ctx.Hives.UnloadHive(ctx, b.Alias); err != nil {
			LogWarning(ctx, "registry", fmt.Errorf("failed to unload hive %s: %w", b.Alias, err))
			continue
		}
		ctx.State.HivesUnloaded = append(ctx.State.HivesUnloaded, b.Alias)
		LogHiveUnloaded(ctx.Observer, b.Alias)
	}
}

func reclaimHandles() {
	runtime.GC()
	debug.FreeOSMemory()
}
