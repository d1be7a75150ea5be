package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kasuboski/nfosync/pkg/catalog"
	"github.com/kasuboski/nfosync/pkg/match"
)

// prompter asks the user to pick among ambiguous catalog matches on the
// terminal. It implements match.Chooser.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (p *prompter) Choose(ctx context.Context, title string, candidates []*catalog.Entity) (*catalog.Entity, error) {
	fmt.Fprintf(p.out, "\nmatches for %q:\n", title)
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, describe(c))
	}

	for {
		fmt.Fprintf(p.out, "select 1-%d, s to skip, q to quit: ", len(candidates))

		line, err := p.in.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("couldn't read selection: %w", err)
		}

		switch answer := strings.ToLower(strings.TrimSpace(line)); answer {
		case "q":
			return nil, match.ErrQuit
		case "s", "":
			return nil, nil
		default:
			n, err := strconv.Atoi(answer)
			if err != nil || n < 1 || n > len(candidates) {
				fmt.Fprintln(p.out, "not a valid selection")
				continue
			}
			return candidates[n-1], nil
		}
	}
}

// askScanPath reads a scan root from the terminal. An empty answer stays
// empty and fails configuration validation later.
func askScanPath(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "path to scan: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return ""
	}

	return strings.TrimSpace(line)
}

// describe renders one candidate line, with enough hierarchy context to tell
// same-named episodes apart.
func describe(e *catalog.Entity) string {
	label := e.Title
	if e.Year != 0 {
		label = fmt.Sprintf("%s (%d)", e.Title, e.Year)
	}

	if e.GrandparentTitle != "" {
		label = fmt.Sprintf("%s / %s / %s", e.GrandparentTitle, e.ParentTitle, label)
	} else if e.ParentTitle != "" {
		label = fmt.Sprintf("%s / %s", e.ParentTitle, label)
	}

	return fmt.Sprintf("%s [%s]", label, e.Kind)
}
