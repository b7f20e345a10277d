package reading

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

// Repository defines access to the last-known snapshot.
type Repository interface {
	Load(ctx context.Context) (*climate.Snapshot, error)
	Save(ctx context.Context, snapshot *climate.Snapshot) error
}

// ErrNotFound is returned before the first successful sample.
var ErrNotFound = errors.New("no reading yet")

// errNilSnapshot is returned when Save receives nothing to store.
var errNilSnapshot = errors.New("snapshot must be provided")

// MemoryRepository stores the snapshot in memory.
// Writers and readers never share the stored pointer.
type MemoryRepository struct {
	mu       sync.RWMutex
	snapshot *climate.Snapshot
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return new(MemoryRepository)
}

// Load returns a copy of the last saved snapshot.
func (r *MemoryRepository) Load(_ context.Context) (*climate.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return nil, ErrNotFound
	}

	return r.snapshot.Clone(), nil
}

// Save overwrites the stored snapshot with a copy of snapshot.
func (r *MemoryRepository) Save(_ context.Context, snapshot *climate.Snapshot) error {
	if snapshot == nil {
		return errNilSnapshot
	}

	r.mu.Lock()
	r.snapshot = snapshot.Clone()
	r.mu.Unlock()

	return nil
}
