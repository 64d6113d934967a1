package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DirStore keeps snapshots in a local directory as name.png and name.json.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Put writes the image and its metadata. Each file is written to a
// temporary name first and renamed into place.
func (s *DirStore) Put(ctx context.Context, name string, png []byte, meta Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := s.write(name+".json", data); err != nil {
		return err
	}
	return s.write(name+".png", png)
}

func (s *DirStore) write(file string, data []byte) error {
	path := filepath.Join(s.dir, file)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a snapshot.
func (s *DirStore) Get(ctx context.Context, name string) ([]byte, Meta, error) {
	var meta Meta
	if err := ctx.Err(); err != nil {
		return nil, meta, err
	}
	png, err := os.ReadFile(filepath.Join(s.dir, name+".png"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, meta, ErrNotFound
	}
	if err != nil {
		return nil, meta, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		return nil, meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, meta, err
	}
	return png, meta, nil
}

// List returns the names of all complete snapshots.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".png"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}
