package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/internal/quiz"
)

// FileStore keeps each bank as one JSON file under dir. Saves go through a
// temp file and rename so a crashed save never leaves a truncated bank.
type FileStore struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore prepares the banks directory and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("banks dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		log:   logger.Banks,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// List returns all bank names, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Create makes a new empty bank, failing when the name is already taken.
func (s *FileStore) Create(name string) error {
	path := s.path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: bank %q", quiz.ErrDuplicateName, name)
	}
	if err != nil {
		return fmt.Errorf("create bank %q: %w", name, err)
	}

	empty := quiz.TestBank{Name: name, Tests: []quiz.TestDefinition{}}
	enc := json.NewEncoder(f)
	if encErr := enc.Encode(empty); encErr != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("create bank %q: %w", name, encErr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("create bank %q: %w", name, err)
	}

	s.log.Info("bank created", slog.String("event", "bank.create"), slog.String("bank", name))
	return nil
}

// Load reads and decodes one bank.
func (s *FileStore) Load(name string) (quiz.TestBank, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return quiz.TestBank{}, fmt.Errorf("%w: bank %q", quiz.ErrNotFound, name)
	}
	if err != nil {
		return quiz.TestBank{}, fmt.Errorf("load bank %q: %w", name, err)
	}

	var b quiz.TestBank
	if err := json.Unmarshal(data, &b); err != nil {
		return quiz.TestBank{}, fmt.Errorf("%w: bank %q: %v", quiz.ErrMalformed, name, err)
	}
	b.Name = name
	return b, nil
}

// Save writes the whole bank atomically.
func (s *FileStore) Save(name string, b quiz.TestBank) error {
	b.Name = name
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bank %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("save bank %q: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save bank %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save bank %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save bank %q: %w", name, err)
	}
	return nil
}

// Delete removes the bank file.
func (s *FileStore) Delete(name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: bank %q", quiz.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete bank %q: %w", name, err)
	}
	s.log.Info("bank deleted", slog.String("event", "bank.delete"), slog.String("bank", name))
	return nil
}

// Update serializes load-mutate-save per bank name.
func (s *FileStore) Update(name string, fn func(*quiz.TestBank) error) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	b, err := s.Load(name)
	if err != nil {
		return err
	}
	if err := fn(&b); err != nil {
		return err
	}
	err = s.Save(name, b)
	s.log.Debug("bank updated",
		slog.String("event", "bank.update"),
		slog.String("bank", name),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	return err
}

func (s *FileStore) path(name string) string {
	// Bank names come from normalized admin input; strip any path element.
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FileStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}
