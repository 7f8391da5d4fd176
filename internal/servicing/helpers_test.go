package servicing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wimserv/wimserv/internal/config"
)

// fakeObserver records events without touching the console.
type fakeObserver struct {
	lines  []string
	events []Event
}

func (o *fakeObserver) Printf(format string, v ...interface{}) {
	o.lines = append(o.lines, fmt.Sprintf(format, v...))
}

func (o *fakeObserver) Event(event Event) {
	o.events = append(o.events, event)
}

func (o *fakeObserver) Progress(_ string, _, _ int) {}

func (o *fakeObserver) eventTypes() []EventType {
	types := make([]EventType, 0, len(o.events))
	for _, e := range o.events {
		types = append(types, e.Type)
	}
	return types
}

// callLog records tool invocations across fakes so ordering can be asserted.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, v ...interface{}) {
	l.calls = append(l.calls, fmt.Sprintf(format, v...))
}

// fakeImage implements ImageServicer.
type fakeImage struct {
	log        *callLog
	cleanupErr error
	mountErr   error
	unmountErr error
}

func (f *fakeImage) CleanupMounts(_ context.Context) error {
	f.log.add("cleanup")
	return f.cleanupErr
}

func (f *fakeImage) Mount(_ context.Context, imagePath string, index int, mountDir string) error {
	f.log.add("mount %s %d %s", imagePath, index, mountDir)
	return f.mountErr
}

func (f *fakeImage) Unmount(_ context.Context, mountDir string, d Disposition) error {
	f.log.add("unmount %s %s", mountDir, d)
	return f.unmountErr
}

// fakePackages implements PackageManager.
type fakePackages struct {
	log         *callLog
	provisioned []ProvisionedPackage
	listErr     error
	removeErr   map[string]error
}

func (f *fakePackages) ListProvisioned(_ context.Context, mountDir string) ([]ProvisionedPackage, error) {
	f.log.add("list %s", mountDir)
	return f.provisioned, f.listErr
}

func (f *fakePackages) RemoveProvisioned(_ context.Context, _, packageName string) error {
	f.log.add("remove %s", packageName)
	if err, ok := f.removeErr[packageName]; ok {
		return err
	}
	return nil
}

// fakeHives implements HiveServicer.
type fakeHives struct {
	log       *callLog
	loadErr   map[string]error
	unloadErr map[string]error
}

func (f *fakeHives) LoadHive(_ context.Context, alias, hivePath string) error {
	f.log.add("load %s %s", alias, hivePath)
	if err, ok := f.loadErr[alias]; ok {
		return err
	}
	return nil
}

func (f *fakeHives) UnloadHive(_ context.Context, alias string) error {
	f.log.add("unload %s", alias)
	if err, ok := f.unloadErr[alias]; ok {
		return err
	}
	return nil
}

// fakeRegistry implements RegistryImporter.
type fakeRegistry struct {
	log       *callLog
	importErr error
}

func (f *fakeRegistry) Import(_ context.Context, regFilePath string) error {
	f.log.add("import %s", regFilePath)
	return f.importErr
}

// fakeOperator implements Operator with scripted responses.
type fakeOperator struct {
	log          *callLog
	dispositions []Disposition
	chooseErr    error
}

func (f *fakeOperator) ChooseDisposition(_ context.Context) (Disposition, error) {
	f.log.add("choose")
	if f.chooseErr != nil {
		return DispositionUnknown, f.chooseErr
	}
	if len(f.dispositions) == 0 {
		return DispositionUnknown, fmt.Errorf("no scripted disposition left")
	}
	d := f.dispositions[0]
	f.dispositions = f.dispositions[1:]
	return d, nil
}

func (f *fakeOperator) Acknowledge(_ context.Context, _ string) error {
	f.log.add("ack")
	return nil
}

// fakeLocker implements lock.Locker.
type fakeLocker struct {
	log  *callLog
	held bool
}

func (f *fakeLocker) TryLock(_ context.Context) (bool, error) {
	f.log.add("trylock")
	return !f.held, nil
}

func (f *fakeLocker) Unlock(_ context.Context) error {
	f.log.add("unlock")
	return nil
}

// testEnv bundles a context wired with fakes over a real temp working folder.
type testEnv struct {
	ctx      *Context
	log      *callLog
	image    *fakeImage
	packages *fakePackages
	hives    *fakeHives
	registry *fakeRegistry
	operator *fakeOperator
	locker   *fakeLocker
	observer *fakeObserver
}

// newTestEnv creates a working folder containing an image file and wires a
// Context with recording fakes.
func newTestEnv(t *testing.T, opts *config.Options) *testEnv {
	t.Helper()

	if opts == nil {
		opts = config.NewOptions(t.TempDir())
	}
	if opts.WorkingDir == "" {
		opts.WorkingDir = t.TempDir()
	}
	opts.ApplyDefaults()
	require.NoError(t, os.WriteFile(opts.ImagePath(), []byte("not a real image"), 0o644))

	log := &callLog{}
	env := &testEnv{
		log:      log,
		image:    &fakeImage{log: log},
		packages: &fakePackages{log: log},
		hives:    &fakeHives{log: log},
		registry: &fakeRegistry{log: log},
		operator: &fakeOperator{log: log, dispositions: []Disposition{DispositionCommit}},
		locker:   &fakeLocker{log: log},
		observer: &fakeObserver{},
	}
	env.ctx = &Context{
		Context:  context.Background(),
		Options:  opts,
		State:    NewState(),
		Image:    env.image,
		Packages: env.packages,
		Hives:    env.hives,
		Registry: env.registry,
		Operator: env.operator,
		Lock:     env.locker,
		Observer: env.observer,
	}
	return env
}

// writeWorkFile writes an action file into the working folder.
func writeWorkFile(t *testing.T, opts *config.Options, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(opts.WorkingDir, name), []byte(content), 0o644))
}
