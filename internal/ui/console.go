// Package ui provides the styled console surface and the operator
// interaction capability used by the servicing orchestrator.
//
// Status messages are informational only and not machine-parseable. The
// operator prompts come in two flavors: an interactive selector when stdout
// is a terminal, and a line-oriented fallback that accepts only the literal
// choices, so scripted and piped sessions behave predictably.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/wimserv/wimserv/internal/servicing"
)

// Info prints an informational status line.
func Info(format string, a ...interface{}) {
	fmt.Println(infoStyle.Render(infoMark) + " " + fmt.Sprintf(format, a...))
}

// OK prints a success status line.
func OK(format string, a ...interface{}) {
	fmt.Println(okStyle.Render(checkMark) + " " + fmt.Sprintf(format, a...))
}

// Warn prints a warning status line.
func Warn(format string, a ...interface{}) {
	fmt.Println(warnStyle.Render(warnMark) + " " + fmt.Sprintf(format, a...))
}

// Fail prints a failure status line.
func Fail(format string, a ...interface{}) {
	fmt.Println(failStyle.Render(crossMark) + " " + fmt.Sprintf(format, a...))
}

// Dim prints a de-emphasized status line.
func Dim(format string, a ...interface{}) {
	fmt.Println(dimStyle.Render(fmt.Sprintf(format, a...)))
}

// compile-time interface check.
var _ servicing.Operator = (*ConsoleOperator)(nil)

// ConsoleOperator implements servicing.Operator over stdin/stdout.
type ConsoleOperator struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewConsoleOperator creates an operator bound to the process console.
// When stdout is a terminal the disposition prompt is an interactive
// selector and acknowledgement reads a single raw key.
func NewConsoleOperator() *ConsoleOperator {
	return &ConsoleOperator{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: stdoutIsTerminal(),
	}
}

// NewConsoleOperatorIO creates a line-oriented operator over the given
// streams. Used in tests with scripted input.
func NewConsoleOperatorIO(in io.Reader, out io.Writer) *ConsoleOperator {
	return &ConsoleOperator{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// ChooseDisposition implements servicing.Operator.
func (o *ConsoleOperator) ChooseDisposition(ctx context.Context) (servicing.Disposition, error) {
	if o.interactive {
		return o.chooseInteractive(ctx)
	}
	return o.choosePrompted(ctx)
}

// chooseInteractive runs a selector; the widget itself constrains input to
// the two valid choices.
func (o *ConsoleOperator) chooseInteractive(ctx context.Context) (servicing.Disposition, error) {
	var d servicing.Disposition

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[servicing.Disposition]().
				Title("Commit or discard changes?").
				Description("Commit rewrites the image file; discard leaves it untouched.").
				Options(
					huh.NewOption("1) Commit - persist changes into the image", servicing.DispositionCommit),
					huh.NewOption("2) Discard - abandon all changes", servicing.DispositionDiscard),
				).
				Value(&d),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return servicing.DispositionUnknown, fmt.Errorf("disposition prompt canceled: %w", err)
	}
	return d, nil
}

// choosePrompted reads lines until the operator enters exactly "1" or "2".
// Anything else re-prompts; there is no default and no other side effect.
func (o *ConsoleOperator) choosePrompted(ctx context.Context) (servicing.Disposition, error) {
	for {
		if err := ctx.Err(); err != nil {
			return servicing.DispositionUnknown, err
		}

		fmt.Fprint(o.out, "Commit or discard changes?\n  1) Commit\n  2) Discard\nEnter choice [1/2]: ")

		line, err := o.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return servicing.DispositionUnknown, fmt.Errorf("input ended before a disposition was chosen")
			}
			return servicing.DispositionUnknown, err
		}

		switch strings.TrimSpace(line) {
		case "1":
			return servicing.DispositionCommit, nil
		case "2":
			return servicing.DispositionDiscard, nil
		}
		fmt.Fprintln(o.out, "Please enter 1 or 2.")
	}
}

// Acknowledge implements servicing.Operator. It gates every exit path so
// the operator sees the final output before a console window closes.
func (o *ConsoleOperator) Acknowledge(_ context.Context, message string) error {
	if message != "" {
		fmt.Fprintln(o.out, message)
	}

	if o.interactive && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(o.out, "Press any key to continue...")
		defer fmt.Fprintln(o.out)
		return readAnyKey()
	}

	fmt.Fprint(o.out, "Press Enter to continue...")
	if _, err := o.in.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	fmt.Fprintln(o.out)
	return nil
}

// readAnyKey reads one byte from the raw terminal.
func readAnyKey() error {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old) //nolint:errcheck

	buf := make([]byte, 1)
	_, err = os.Stdin.Read(buf)
	return err
}

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
