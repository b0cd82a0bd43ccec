package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrCorruptRecord = errors.New("storage: corrupt record")
)

// Store keeps one durable record per checklist, addressed by name. Save
// overwrites the whole record and is safe to call on every tick.
type Store interface {
	Load(ctx context.Context, name string) (Record, error)
	Save(ctx context.Context, in Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}
