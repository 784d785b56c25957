package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const metadataFile = "metadata.json"

type metadata struct {
	ActiveDocTitle string `json:"active_doc_title"`
}

// FileStore keeps each document in <dir>/<safe title>.txt, one line per
// entry, and the active title in <dir>/metadata.json. All documents are held
// in memory and written through on every change.
type FileStore struct {
	dir string

	mu     sync.RWMutex
	docs   map[string][]string
	order  []string
	active string
}

// OpenFileStore loads dir, creating it and a default document when empty.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("documents: create %s: %w", dir, err)
	}
	s := &FileStore{dir: dir, docs: make(map[string][]string)}
	if err := s.load(); err != nil {
		return nil, err
	}
	if len(s.docs) == 0 {
		s.put(DefaultTitle, []string{defaultLine})
		s.active = DefaultTitle
		if err := s.writeDoc(DefaultTitle); err != nil {
			return nil, err
		}
		if err := s.writeMetadata(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.active = DefaultTitle
	if raw, err := os.ReadFile(filepath.Join(s.dir, metadataFile)); err == nil {
		var m metadata
		if err := json.Unmarshal(raw, &m); err != nil {
			slog.Warn("documents: ignoring unreadable metadata", "dir", s.dir, "err", err)
		} else if m.ActiveDocTitle != "" {
			s.active = m.ActiveDocTitle
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("documents: read metadata: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("documents: list %s: %w", s.dir, err)
	}
	sort.Strings(paths)
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			slog.Warn("documents: skipping unreadable document", "path", p, "err", err)
			continue
		}
		title := strings.TrimSuffix(filepath.Base(p), ".txt")
		var lines []string
		if text := strings.TrimSpace(string(raw)); text != "" {
			lines = strings.Split(text, "\n")
		}
		s.put(title, lines)
	}

	if _, ok := s.docs[s.active]; !ok && len(s.order) > 0 {
		s.active = s.order[0]
	}
	return nil
}

func (s *FileStore) put(title string, lines []string) {
	if _, ok := s.docs[title]; !ok {
		s.order = append(s.order, title)
	}
	s.docs[title] = lines
}

func (s *FileStore) AddContent(_ context.Context, title, content, position string) (Placement, error) {
	if strings.TrimSpace(title) == "" {
		return Placement{}, ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, ok := s.docs[title]
	out, p := Insert(lines, content, position)
	p.Created = !ok
	s.put(title, out)
	if err := s.writeDoc(title); err != nil {
		return Placement{}, err
	}
	return p, nil
}

func (s *FileStore) ClearDocument(_ context.Context, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[title]; !ok {
		return false, nil
	}
	s.docs[title] = nil
	return true, s.writeDoc(title)
}

func (s *FileStore) SetActiveDocument(_ context.Context, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[title]; !ok {
		return false, nil
	}
	s.active = title
	return true, s.writeMetadata()
}

func (s *FileStore) Lines(_ context.Context, title string) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.docs[title]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), lines...), true, nil
}

func (s *FileStore) Titles(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *FileStore) ActiveTitle(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) writeDoc(title string) error {
	path := filepath.Join(s.dir, SafeTitle(title)+".txt")
	return writeAtomic(path, []byte(strings.Join(s.docs[title], "\n")))
}

func (s *FileStore) writeMetadata() error {
	raw, err := json.MarshalIndent(metadata{ActiveDocTitle: s.active}, "", "  ")
	if err != nil {
		return fmt.Errorf("documents: encode metadata: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, metadataFile), raw)
}

// writeAtomic replaces path through a temporary file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("documents: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("documents: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("documents: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("documents: write %s: %w", path, err)
	}
	return nil
}
