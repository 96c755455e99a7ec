// Package prog provides the entry point for the tide binary. Its Program
// implementations correspond to tide's subprograms: the universal-variable
// daemon and the interactive shell. Grounded on the teacher's
// pkg/prog/prog.go (Flags/newFlagSet/Run/Composite), generalized from
// elvish's daemon-or-shell-or-web split to tide's daemon-or-shell split.
package prog

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Flags keeps command-line flags shared across subprograms.
type Flags struct {
	Help, Version bool

	Daemon bool

	Sock, PersistDir, HistoryDir, RCFile string
}

func newFlagSet(f *Flags) *flag.FlagSet {
	fs := flag.NewFlagSet("tide", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.Help, "help", false, "show usage help and quit")
	fs.BoolVar(&f.Version, "version", false, "show version and quit")

	fs.BoolVar(&f.Daemon, "daemon", false, "[internal flag] run the universal-variable daemon instead of the shell")
	fs.StringVar(&f.Sock, "sock", "", "path to the universal-variable daemon socket")
	fs.StringVar(&f.PersistDir, "persist-dir", "", "directory holding the daemon's persisted variable file")
	fs.StringVar(&f.HistoryDir, "history-dir", "", "directory holding the history store")
	fs.StringVar(&f.RCFile, "rc", "", "path to the rc.yaml config file")

	return fs
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(out, "Usage: tide [flags]")
	fmt.Fprintln(out, "Supported flags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// Program represents a subprogram: the daemon, or the interactive shell.
type Program interface {
	Run(fds [3]*os.File, f *Flags, args []string) error
}

// ErrNotSuitable signals that a Program declines to run, letting Composite
// try the next one.
var ErrNotSuitable = errors.New("internal error: no suitable subprogram")

// BadUsage returns an error that makes Run print msg, the usage text, and
// exit with status 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns an error that makes Run exit with the given status without
// printing anything. Exit(0) is equivalent to returning nil.
func Exit(code int) error {
	if code == 0 {
		return nil
	}
	return exitError{code}
}

type exitError struct{ code int }

func (e exitError) Error() string { return "" }

// Composite tries each program in order, stopping at the first that does
// not return ErrNotSuitable.
func Composite(programs ...Program) Program { return compositeProgram(programs) }

type compositeProgram []Program

func (cp compositeProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	for _, p := range cp {
		err := p.Run(fds, f, args)
		if err != ErrNotSuitable {
			return err
		}
	}
	return ErrNotSuitable
}

// Run parses command-line flags and runs the first applicable subprogram.
// It returns the process exit status.
func Run(fds [3]*os.File, args []string, p Program) int {
	f := &Flags{}
	fs := newFlagSet(f)
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			fmt.Fprintln(fds[2], "flag provided but not defined: -h")
		} else {
			fmt.Fprintln(fds[2], err)
		}
		usage(fds[2], fs)
		return 2
	}

	if f.Help {
		usage(fds[1], fs)
		return 0
	}
	if f.Version {
		fmt.Fprintln(fds[1], "tide 0.1.0")
		return 0
	}

	err := p.Run(fds, f, fs.Args())
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(fds[2], msg)
	}
	switch e := err.(type) {
	case badUsageError:
		usage(fds[2], fs)
	case exitError:
		return e.code
	}
	return 2
}
