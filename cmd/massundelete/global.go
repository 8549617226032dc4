package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/mdarezzo/massundelete/internal/errors"
	"github.com/mdarezzo/massundelete/internal/ui"
	"github.com/mdarezzo/massundelete/internal/ui/progress"
)

// GlobalOptions hold all global options for massundelete.
type GlobalOptions struct {
	Quiet   bool
	Verbose int

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report minor things, this is used when --verbose is specified
	//  3 means: print very detailed debug messages, this is used when --verbose=2 is specified
	verbosity uint
}

var globalOptions GlobalOptions

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``, max level/times is 2)")
}

// PreRun resolves the verbosity level from the flags.
func (opts *GlobalOptions) PreRun() error {
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified together")
	}

	switch {
	case opts.Quiet:
		opts.verbosity = 0
	case opts.Verbose >= 2:
		opts.verbosity = 3
	default:
		opts.verbosity = uint(opts.Verbose) + 1
	}

	return nil
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// clearLine returns the escape sequence that wipes a status line, or just a
// newline when stdout is not a terminal.
func clearLine() string {
	if stdoutIsTerminal() {
		return "\r\x1b[2K"
	}
	return "\n"
}

// Warnf writes the message to stderr.
func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// termPrinter writes messages to stdout/stderr according to the configured
// verbosity and keeps a single rewritable status line on terminals.
type termPrinter struct {
	verbosity uint

	mu          sync.Mutex
	statusLines bool // a status line is currently displayed
}

var _ progress.Printer = (*termPrinter)(nil)

func newTermPrinter(gopts GlobalOptions) *termPrinter {
	return &termPrinter{verbosity: gopts.verbosity}
}

func (p *termPrinter) print(w *os.File, msg string, args []interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statusLines {
		fmt.Print("\r\x1b[2K")
		p.statusLines = false
	}
	fmt.Fprintf(w, msg+"\n", args...)
}

// E prints an error message, regardless of verbosity.
func (p *termPrinter) E(msg string, args ...interface{}) {
	p.print(os.Stderr, msg, args)
}

func (p *termPrinter) P(msg string, args ...interface{}) {
	if p.verbosity >= 1 {
		p.print(os.Stdout, msg, args)
	}
}

func (p *termPrinter) V(msg string, args ...interface{}) {
	if p.verbosity >= 2 {
		p.print(os.Stdout, msg, args)
	}
}

func (p *termPrinter) VV(msg string, args ...interface{}) {
	if p.verbosity >= 3 {
		p.print(os.Stdout, msg, args)
	}
}

// Status displays line as the current status. On a terminal the line is
// rewritten in place on every update, otherwise it is printed like a normal
// message.
func (p *termPrinter) Status(line string) {
	if p.verbosity < 1 {
		return
	}

	if !stdoutIsTerminal() {
		p.P("%s", line)
		return
	}

	// the line must not wrap, otherwise the next rewrite leaves parts of
	// the old one on screen
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		line = ui.Truncate(line, w-1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Printf("\r\x1b[2K%s", line)
	p.statusLines = true
}

// ClearStatus removes a displayed status line, if any.
func (p *termPrinter) ClearStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statusLines {
		fmt.Print("\r\x1b[2K")
		p.statusLines = false
	}
}
