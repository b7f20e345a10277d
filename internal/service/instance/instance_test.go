package instance

import (
	"errors"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func lister(processes ...ps.Process) Lister {
	return func() ([]ps.Process, error) { return processes, nil }
}

// TestEnsureSingle covers self, other binaries and a second instance.
func TestEnsureSingle(t *testing.T) {
	t.Parallel()

	self := fakeProcess{pid: 10, name: "climate-alarm"}

	require.NoError(t, ensureSingle(lister(self, fakeProcess{pid: 11, name: "sshd"}), 10, "climate-alarm"))

	err := ensureSingle(lister(self, fakeProcess{pid: 12, name: "climate-alarm"}), 10, "climate-alarm")
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.ErrorContains(t, err, "pid 12")
}

// TestEnsureSingle_TruncatedNames matches names cut by the kernel.
func TestEnsureSingle_TruncatedNames(t *testing.T) {
	t.Parallel()

	err := ensureSingle(lister(fakeProcess{pid: 2, name: "climate-alarm-g"}), 1, "climate-alarm-greenhouse")
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, ensureSingle(lister(fakeProcess{pid: 2, name: "climate"}), 1, "climate-alarm"))
}

// TestEnsureSingle_ListError wraps lister failures.
func TestEnsureSingle_ListError(t *testing.T) {
	t.Parallel()

	errProc := errors.New("proc not mounted")

	err := ensureSingle(func() ([]ps.Process, error) { return nil, errProc }, 1, "x")
	require.ErrorIs(t, err, errProc)
}
