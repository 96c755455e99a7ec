// Package pager implements C6: the bridge to an external pager program.
// Candidates are written to the child's fd 3; anything the user types into
// the pager and it decides to emit comes back on fd 4 and is spliced into
// the reader's input queue as if typed. Spawning the child against a pty is
// grounded in the teacher's pkg/prog/progtest.SetupInteractive, the one
// place in the pack that drives github.com/creack/pty directly.
package pager

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/creack/pty"

	"tide.sh/pkg/logging"
)

var log = logging.New("pager")

// Result is what the reader splices back into its input queue after the
// pager exits.
type Result struct {
	// Typed is the sequence of code points to feed back through the input
	// queue, as if the user had typed them.
	Typed []rune
	// Beep reports a failure mode the reader should signal audibly while
	// leaving the buffer untouched: non-zero exit or a read error on fd 4.
	Beep bool
}

// Run writes candidates (one per escaped line) to the pager's fd 3, runs
// command as a child process, and drains fd 4 into a Result. restoreTerminal
// is called after the child exits and before this function returns,
// regardless of outcome, since the pager owns the tty while it runs.
func Run(command string, candidates []string, restoreTerminal func()) Result {
	defer restoreTerminal()

	inR, inW, err := os.Pipe()
	if err != nil {
		log.Error("opening candidate pipe: %v", err)
		return Result{Beep: true}
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		log.Error("opening splice-back pipe: %v", err)
		return Result{Beep: true}
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return Result{Beep: true}
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Env = append(os.Environ(), "PAGER_FD_IN=3", "PAGER_FD_OUT=4")
	cmd.ExtraFiles = []*os.File{inR, outW}

	ptyFile, ttyFile, err := pty.Open()
	if err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		log.Error("opening pty for pager: %v", err)
		return Result{Beep: true}
	}
	cmd.Stdin = ttyFile
	cmd.Stdout = ttyFile
	cmd.Stderr = ttyFile

	if err := cmd.Start(); err != nil {
		ptyFile.Close()
		ttyFile.Close()
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		log.Error("starting pager %q: %v", command, err)
		return Result{Beep: true}
	}
	ttyFile.Close()
	inR.Close()
	outW.Close()

	writeCandidates(inW, candidates)
	inW.Close()

	typed, readErr := drain(outR)
	outR.Close()

	waitErr := cmd.Wait()
	ptyFile.Close()

	if waitErr != nil {
		log.Warn("pager %q exited with error: %v", command, waitErr)
		return Result{Beep: true}
	}
	if readErr != nil {
		log.Warn("reading pager splice-back: %v", readErr)
		return Result{Beep: true}
	}
	return Result{Typed: typed}
}

// writeCandidates escapes and writes one candidate per line to w, the way
// the reader hands the pager its input on fd 3.
func writeCandidates(w io.Writer, candidates []string) {
	bw := bufio.NewWriter(w)
	for _, c := range candidates {
		bw.WriteString(escapeLine(c))
		bw.WriteByte('\n')
	}
	bw.Flush()
}

func escapeLine(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\\':
			b.WriteString(`\\`)
		default:
			if r < 0x20 {
				b.WriteString(`\x`)
				b.WriteString(strconv.FormatInt(int64(r), 16))
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func drain(r io.Reader) ([]rune, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return []rune(string(data)), nil
}
