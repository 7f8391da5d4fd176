// Package packlist parses the package-removal list consumed by the
// packages servicing phase.
//
// The format is one wildcard-capable display-name pattern per line.
// Blank lines and lines starting with '#' are skipped so operators can
// annotate shared lists.
package packlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is a single compiled display-name pattern.
type Pattern struct {
	// Raw is the pattern text as written in the list file.
	Raw string

	g glob.Glob
}

// Match reports whether the display name matches the pattern.
// Matching is case-insensitive; provisioned package display names are not
// consistently cased across image builds.
func (p Pattern) Match(displayName string) bool {
	return p.g.Match(strings.ToLower(displayName))
}

// List is an ordered set of removal patterns.
type List struct {
	Patterns []Pattern
}

// Load reads and compiles the removal list from a file.
func Load(path string) (*List, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package list: %w", err)
	}
	defer f.Close()

	list, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse package list %s: %w", path, err)
	}
	return list, nil
}

// Parse reads removal patterns from r, one per line.
func Parse(r io.Reader) (*List, error) {
	list := &List{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		g, err := glob.Compile(strings.ToLower(line))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern on line %d (%q): %w", lineNo, line, err)
		}
		list.Patterns = append(list.Patterns, Pattern{Raw: line, g: g})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	return list, nil
}

// Empty reports whether the list contains no usable patterns.
func (l *List) Empty() bool {
	return l == nil || len(l.Patterns) == 0
}
