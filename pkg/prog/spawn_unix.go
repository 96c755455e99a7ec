//go:build !windows && !plan9 && !js

package prog

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// SpawnDaemon starts a detached "tide -daemon" process listening on
// sockPath, with its log file created under runDir. Grounded on the
// teacher's pkg/daemon/spawn.go and spawn_unix.go: os.StartProcess with
// Setsid:true detaches from the current terminal, the idiomatic Go
// equivalent of fork+setsid+close-stdio, since the Go runtime cannot
// safely fork() a multithreaded process.
func SpawnDaemon(sockPath, persistDir, runDir string) error {
	binPath, err := os.Executable()
	if err != nil {
		return errors.New("cannot find tide binary: " + err.Error())
	}
	sockAbs, err := filepath.Abs(sockPath)
	if err != nil {
		return err
	}
	persistAbs, err := filepath.Abs(persistDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(runDir, 0o700); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(runDir, "daemon.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer logFile.Close()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer devNull.Close()

	args := []string{binPath, "-daemon", "-sock", sockAbs, "-persist-dir", persistAbs}
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   os.Environ(),
		Files: []*os.File{devNull, logFile, logFile},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	_, err = os.StartProcess(binPath, args, attr)
	return err
}
