// Package instance prevents two processes from driving the same pins.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// commLength is the length Linux truncates process names to.
const commLength = 15

// Lister returns the running processes.
type Lister func() ([]ps.Process, error)

// EnsureSingle fails when another process with the current executable name
// is running.
func EnsureSingle() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return ensureSingle(ps.Processes, os.Getpid(), filepath.Base(executable))
}

func ensureSingle(list Lister, selfPID int, name string) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if sameExecutable(process.Executable(), name) {
			return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
		}
	}

	return nil
}

func sameExecutable(running, name string) bool {
	if running == name {
		return true
	}

	return len(running) == commLength && strings.HasPrefix(name, running)
}
