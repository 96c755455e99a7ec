package prog

import (
	"io"
	"os"
	"testing"
)

type fakeProgram struct {
	notSuitable bool
	err         error
	ran         bool
}

func (p *fakeProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	if p.notSuitable {
		return ErrNotSuitable
	}
	p.ran = true
	return p.err
}

func pipeFds(t *testing.T) (fds [3]*os.File, readStdout, readStderr func() string) {
	t.Helper()
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	inR, inW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	inW.Close()
	fds = [3]*os.File{inR, outW, errW}
	readStdout = func() string {
		outW.Close()
		b, _ := io.ReadAll(outR)
		return string(b)
	}
	readStderr = func() string {
		errW.Close()
		b, _ := io.ReadAll(errR)
		return string(b)
	}
	return fds, readStdout, readStderr
}

func TestRunBadFlagExits2(t *testing.T) {
	fds, _, readStderr := pipeFds(t)
	code := Run(fds, []string{"tide", "-bad-flag"}, &fakeProgram{})
	if code != 2 {
		t.Fatalf("Run() = %d, want 2", code)
	}
	if got := readStderr(); got == "" {
		t.Fatalf("expected usage error on stderr, got nothing")
	}
}

func TestRunHelpExits0AndWritesUsage(t *testing.T) {
	fds, readStdout, _ := pipeFds(t)
	code := Run(fds, []string{"tide", "-help"}, &fakeProgram{})
	if code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	if got := readStdout(); got == "" {
		t.Fatalf("expected usage text on stdout, got nothing")
	}
}

func TestRunDelegatesToProgramAndExits0OnNilError(t *testing.T) {
	fds, _, _ := pipeFds(t)
	p := &fakeProgram{}
	code := Run(fds, []string{"tide"}, p)
	if code != 0 || !p.ran {
		t.Fatalf("Run() = %d, ran = %v, want 0, true", code, p.ran)
	}
}

func TestRunTranslatesExitError(t *testing.T) {
	fds, _, _ := pipeFds(t)
	code := Run(fds, []string{"tide"}, &fakeProgram{err: Exit(7)})
	if code != 7 {
		t.Fatalf("Run() = %d, want 7", code)
	}
}

func TestRunPrintsBadUsageAndUsage(t *testing.T) {
	fds, _, readStderr := pipeFds(t)
	code := Run(fds, []string{"tide"}, &fakeProgram{err: BadUsage("nope")})
	if code != 2 {
		t.Fatalf("Run() = %d, want 2", code)
	}
	got := readStderr()
	if got == "" {
		t.Fatalf("expected bad-usage message on stderr")
	}
}

func TestCompositeTriesEachUntilSuitable(t *testing.T) {
	fds, _, _ := pipeFds(t)
	first := &fakeProgram{notSuitable: true}
	second := &fakeProgram{}
	code := Run(fds, []string{"tide"}, Composite(first, second))
	if code != 0 || first.ran || !second.ran {
		t.Fatalf("Composite did not skip to the suitable program: first.ran=%v second.ran=%v", first.ran, second.ran)
	}
}

func TestCompositeAllUnsuitableIsAnError(t *testing.T) {
	fds, _, readStderr := pipeFds(t)
	code := Run(fds, []string{"tide"}, Composite(&fakeProgram{notSuitable: true}))
	if code != 2 {
		t.Fatalf("Run() = %d, want 2", code)
	}
	if readStderr() == "" {
		t.Fatalf("expected ErrNotSuitable message on stderr")
	}
}
