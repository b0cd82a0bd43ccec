package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const jsonExt = ".json"

// JSONStore writes each checklist to <dir>/<name>.json.
type JSONStore struct {
	dir string
}

// fileRecord accepts reset_on, the key used by files written before
// next_reset existed.
type fileRecord struct {
	Name      string          `json:"name"`
	NextReset *time.Time      `json:"next_reset"`
	ResetOn   *time.Time      `json:"reset_on,omitempty"`
	Tasks     map[string]bool `json:"tasks"`
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: json store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Dir() string { return s.dir }

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) Load(ctx context.Context, name string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	path, err := s.path(name)
	if err != nil {
		return Record{}, err
	}
	return readRecord(path, name)
}

func (s *JSONStore) Save(ctx context.Context, in Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	path, err := s.path(in.Name)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(in.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", in.Name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+in.Name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// List returns every record in the directory, sorted by name.
func (s *JSONStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != jsonExt {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, name), strings.TrimSuffix(name, jsonExt))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *JSONStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("storage: invalid record name %q", name)
	}
	return filepath.Join(s.dir, name+jsonExt), nil
}

func readRecord(path, name string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	var fr fileRecord
	if err := json.Unmarshal(raw, &fr); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, path, err)
	}
	if fr.Name == "" {
		fr.Name = name
	}
	if fr.Name != name {
		return Record{}, fmt.Errorf("%w: %s holds checklist %q", ErrCorruptRecord, path, fr.Name)
	}
	if fr.Tasks == nil {
		fr.Tasks = make(map[string]bool)
	}
	next := fr.NextReset
	if next == nil {
		next = fr.ResetOn
	}
	rec := Record{Name: fr.Name, Tasks: fr.Tasks}
	if next != nil {
		at := next.UTC()
		rec.NextReset = &at
	}
	return rec, nil
}
