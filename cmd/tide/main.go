// Command tide is the entry point for the shell's line-editor and
// supporting daemon, mirroring the teacher's cmd/elvish/main.go: parse
// flags, then hand off to whichever subprogram claims them.
package main

import (
	"os"

	"tide.sh/pkg/prog"
)

func main() {
	os.Exit(prog.Run([3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(prog.DaemonProgram{}, prog.ShellProgram{})))
}
