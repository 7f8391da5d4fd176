package servicing

import "fmt"

// DispositionPhase asks the operator whether to commit or discard the
// changes made to the mounted view. Accumulated warnings are surfaced first
// so the choice is an informed one; there is no default and the Operator
// implementation re-prompts until the answer is valid.
type DispositionPhase struct{}

// Name implements Phase.
func (DispositionPhase) Name() string { return "disposition" }

// Run implements Phase.
func (DispositionPhase) Run(ctx *Context) error {
	for _, w := range ctx.State.Warnings {
		ctx.Observer.Printf("[disposition] warning from %s phase: %v", w.Phase, w.Err)
	}
	if n := len(ctx.State.Warnings); n > 0 {
		ctx.Observer.Printf("[disposition] %d warning(s) occurred; consider discarding", n)
	}

	d, err := ctx.Operator.ChooseDisposition(ctx)
	if err != nil {
		return fmt.Errorf("failed to read disposition choice: %w", err)
	}
	if d != DispositionCommit && d != DispositionDiscard {
		return fmt.Errorf("operator returned invalid disposition %d", d)
	}

	ctx.State.Disposition = d
	ctx.Observer.Event(Event{
		Type:    EventDispositionChosen,
		Phase:   "disposition",
		Message: d.String(),
	})
	return nil
}

// UnmountPhase unmounts the image with the chosen disposition.
type UnmountPhase struct{}

// Name implements Phase.
func (UnmountPhase) Name() string { return "unmount" }

// Run implements Phase.
func (UnmountPhase) Run(ctx *Context) error {
	d := ctx.State.Disposition
	if d == DispositionUnknown {
		return fmt.Errorf("no disposition chosen before unmount")
	}
	if err := ctx.Image.Unmount(ctx, ctx.Options.MountPath(), d); err != nil {
		return fmt.Errorf("failed to unmount with %s: %w", d, err)
	}
	ctx.State.Mounted = false
	return nil
}
