package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the byte-level storage boundary of the snapshot cache. Load reports
// ok=false, and no error, when nothing is stored under key.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// Key builds the storage key of a snapshot from the collection it belongs to
// and the partition (league) it was built for.
func Key(collection, partition string) string {
	return collection + ":" + partition
}

// MemoryStore keeps envelopes in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// FileStore keeps one file per key in a directory, named
// __poe__<collection>__<partition>.<ext>.
type FileStore struct {
	dir string
	ext string
}

// NewFileStore creates a store rooted at dir, creating it if needed. An empty
// dir selects os.TempDir(). ext is the file extension without the dot and
// defaults to "json".
func NewFileStore(dir, ext string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if ext == "" {
		ext = "json"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, ext: ext}, nil
}

// Path returns the file that holds key.
func (s *FileStore) Path(key string) string {
	name := "__poe__" + strings.ReplaceAll(key, ":", "__")
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	return filepath.Join(s.dir, name+"."+s.ext)
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so readers never observe a partial envelope.
func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	target := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
