package prog

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"tide.sh/pkg/argcache"
	"tide.sh/pkg/argspec"
	"tide.sh/pkg/autoload"
	"tide.sh/pkg/buffer"
	"tide.sh/pkg/complete"
	"tide.sh/pkg/config"
	"tide.sh/pkg/function"
	"tide.sh/pkg/highlight"
	"tide.sh/pkg/history"
	"tide.sh/pkg/logging"
	"tide.sh/pkg/reader"
	"tide.sh/pkg/term"
	"tide.sh/pkg/univar"
)

var log = logging.New("shell")

// ShellProgram runs the interactive reader loop (C12) wired to every
// other component: C7 history, C8/C9 autoload and function registry, C10
// argument specs backed by C14's bbolt cache, C11's universal-variable
// daemon, and C4/C5/C6's highlight/completion/pager bridge, the same
// "wire every subsystem into one top-level loop" shape as the teacher's
// pkg/shell package wires pkg/eval, pkg/edit and pkg/store together.
type ShellProgram struct{}

func (ShellProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	if f.Daemon {
		return ErrNotSuitable
	}

	cfg, err := config.Load(rcPath(f.RCFile))
	if err != nil {
		return err
	}

	histDir := f.HistoryDir
	if histDir == "" {
		histDir = defaultStateDir()
	}
	if err := os.MkdirAll(histDir, 0o700); err != nil {
		return err
	}
	hist, err := history.Open(histDir, "fish_history")
	if err != nil {
		return err
	}
	defer hist.Close()

	sock := f.Sock
	if sock == "" {
		sock = defaultSockPath()
	}
	persistDir := f.PersistDir
	if persistDir == "" {
		persistDir = defaultStateDir()
	}
	uv, err := dialOrSpawnDaemon(sock, persistDir)
	if err != nil {
		log.Warn("universal-variable daemon unavailable: %v", err)
	} else {
		defer uv.Close()
	}

	cachePath := filepath.Join(persistDir, "argspec-cache.bolt")
	var grammars *argspec.Registry
	if cache, err := argcache.Open(cachePath); err == nil {
		defer cache.Close()
		grammars = argspec.NewCached(cache)
	} else {
		log.Warn("argument spec cache unavailable, parsing grammars every time: %v", err)
		grammars = argspec.New()
	}

	funcPathLoader := functionFileLoader{}
	functionCache := autoload.New(".fish", funcPathLoader)
	functions := function.New(functionCache, nil)

	env := highlightEnv(uv)
	res := &shellResolver{functions: functions, grammars: grammars}

	r := reader.New(reader.Config{
		In:           fds[0],
		Out:          fds[1],
		Width:        terminalWidth(fds[1]),
		History:      hist,
		HighlightEnv: highlight.Env{Vars: env},
		Cwd:          cwd(),
		Resolver:     res,
		Sources:      func() complete.Sources { return completionSources(functions, grammars) },
		PagerCommand: cfg.Pager,
		StyleOf:      styleFunc(cfg),
	})

	// Raw mode only makes sense on an actual terminal; guard it the way the
	// teacher's pkg/sys.IsATTY gates the same setup before its shell entry
	// point switches the edit loop on. Piped/redirected stdin still gets
	// ReadLine below, just without raw-mode key decoding.
	if term.IsATTY(fds[0].Fd()) {
		if restore, err := term.Setup(int(fds[0].Fd())); err == nil {
			defer restore()
		}
	}

	for {
		line, err := r.ReadLine()
		if err != nil {
			return err
		}
		if line.EOF {
			return Exit(0)
		}
		if line.Text == "" {
			continue
		}
		// Execution of the accepted line is out of scope: this is a
		// line-editor and its supporting services, not a POSIX shell.
		fmt.Fprintln(fds[1], line.Text)
	}
}

func rcPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tide", "rc.yaml")
}

func cwd() string {
	d, err := os.Getwd()
	if err != nil {
		return "/"
	}
	return d
}

func terminalWidth(out *os.File) int {
	w, _, err := term.Size(int(out.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// styleFunc maps a C1 buffer.Color role to the ANSI SGR string cfg's rc
// file assigns it, with ValidPath/Match overlay bits adding underline.
func styleFunc(cfg config.Config) func(buffer.Color) string {
	byRole := map[buffer.Color]string{
		buffer.Normal:         cfg.Colors["param"].Style().SGR(),
		buffer.Command:        cfg.Colors["command"].Style().SGR(),
		buffer.Param:          cfg.Colors["param"].Style().SGR(),
		buffer.CommentColor:   cfg.Colors["comment"].Style().SGR(),
		buffer.ErrorColor:     cfg.Colors["error"].Style().SGR(),
		buffer.Autosuggestion: cfg.Colors["autosuggestion"].Style().SGR(),
	}
	return func(c buffer.Color) string {
		sgr := byRole[c.Role()]
		if c&buffer.ValidPath != 0 || c&buffer.Match != 0 {
			if sgr != "" {
				sgr += ";4"
			} else {
				sgr = "4"
			}
		}
		return sgr
	}
}

func highlightEnv(uv *univar.Client) map[string]string {
	vars := map[string]string{"PATH": os.Getenv("PATH")}
	if uv == nil {
		return vars
	}
	for k, e := range uv.Store().Snapshot() {
		vars[k] = e.Value
	}
	return vars
}

func dialOrSpawnDaemon(sock, persistDir string) (*univar.Client, error) {
	c, err := univar.Dial(sock)
	if err == nil {
		return c, nil
	}
	runDir := filepath.Dir(sock)
	if err := SpawnDaemon(sock, persistDir, runDir); err != nil {
		return nil, err
	}
	for i := 0; i < 20; i++ {
		time.Sleep(50 * time.Millisecond)
		if c, err := univar.Dial(sock); err == nil {
			return c, nil
		}
	}
	return nil, err
}

func completionSources(functions *function.Registry, grammars *argspec.Registry) complete.Sources {
	path := splitPath(os.Getenv("PATH"))
	return complete.Sources{
		Builtins:  builtinNames,
		Functions: functions.Names(),
		Path:      path,
		ArgSpec: func(command string) []complete.Candidate {
			var cands []complete.Candidate
			for _, name := range grammars.SuggestNext(command, nil) {
				desc, _ := grammars.DescriptionFor(command, name)
				cands = append(cands, complete.Candidate{Replacement: name, Description: desc})
			}
			return cands
		},
		Env: map[string]string{"PATH": os.Getenv("PATH")},
		Stat: func(p string) (isDir, exists bool) {
			st, err := os.Stat(p)
			if err != nil {
				return false, false
			}
			return st.IsDir(), true
		},
		ReadDir: func(dir string) []os.DirEntry {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil
			}
			return entries
		},
	}
}

var builtinNames = []string{
	"cd", "exit", "set", "export", "read", "function", "end", "if", "else",
	"for", "while", "return", "break", "continue", "source", "alias",
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	out = append(out, p[start:])
	return out
}

// functionFileLoader stands in for loading a ".fish"-suffixed file found on
// the function search path: Load only checks that the file exists. It does
// not read or execute the file and defines no functions.
type functionFileLoader struct{}

func (functionFileLoader) Load(name, path string) error {
	_, err := os.Stat(path)
	return err
}

func (functionFileLoader) Unload(name string) {}

// shellResolver backs C4's Resolver interface from the function registry,
// C10's argument grammars, and the filesystem.
type shellResolver struct {
	functions *function.Registry
	grammars  *argspec.Registry
}

func (r *shellResolver) IsKeyword(name string) bool {
	switch name {
	case "if", "else", "end", "for", "while", "function", "return", "break", "continue":
		return true
	}
	return false
}

func (r *shellResolver) IsFunction(name string) bool {
	_, ok := r.functions.Get(name)
	return ok
}

func (r *shellResolver) IsBuiltin(name string) bool {
	for _, b := range builtinNames {
		if b == name {
			return true
		}
	}
	return false
}

func (r *shellResolver) LookPath(name string, path []string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (r *shellResolver) Stat(cwd, path string) (isDir, exists bool) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(cwd, full)
	}
	st, err := os.Stat(full)
	if err != nil {
		return false, false
	}
	return st.IsDir(), true
}
