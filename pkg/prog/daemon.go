package prog

import (
	"os"

	"tide.sh/pkg/univar"
)

// DaemonProgram runs the universal-variable daemon (C11) instead of the
// interactive shell, grounded on the teacher's pkg/prog/daemon.go
// (DaemonProgram.ShouldRun/Run wrapping daemon.Serve).
type DaemonProgram struct{}

func (DaemonProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	if !f.Daemon {
		return ErrNotSuitable
	}
	if len(args) > 0 {
		return BadUsage("arguments are not allowed with -daemon")
	}
	sock := f.Sock
	if sock == "" {
		sock = defaultSockPath()
	}
	persistDir := f.PersistDir
	if persistDir == "" {
		persistDir = defaultStateDir()
	}
	id := univar.MachineID()
	persistPath, err := univar.PersistencePath(persistDir, id)
	if err != nil {
		return err
	}
	code := univar.Serve(sock, persistPath, univar.ServeOpts{})
	return Exit(code)
}

func defaultSockPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/tide.sock"
	}
	return "/tmp/tide-" + os.Getenv("USER") + ".sock"
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir + "/tide"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/tide-state"
	}
	return home + "/.local/state/tide"
}
