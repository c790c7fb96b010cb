package voteguard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

// CooldownRecord marks "this session already voted for subject recently".
// It is written only after the server acknowledged the vote.
type CooldownRecord struct {
	Subject   domain.Subject `json:"subject"`
	Value     int            `json:"vote"`
	Timestamp time.Time      `json:"timestamp"`
}

// CooldownStore persists cooldown records per subject.
type CooldownStore interface {
	Get(subject domain.Subject) (CooldownRecord, bool, error)
	Put(record CooldownRecord) error
	Delete(subject domain.Subject) error
}

// MemoryStore keeps cooldown records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[domain.Subject]CooldownRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.Subject]CooldownRecord)}
}

func (s *MemoryStore) Get(subject domain.Subject) (CooldownRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[subject]
	return rec, ok, nil
}

func (s *MemoryStore) Put(record CooldownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Subject] = record
	return nil
}

func (s *MemoryStore) Delete(subject domain.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, subject)
	return nil
}

// FileStore persists cooldown records as a JSON file, giving the CLI the same
// clearable local state a browser keeps in local storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(subject domain.Subject) (CooldownRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return CooldownRecord{}, false, err
	}
	rec, ok := records[subject]
	return rec, ok, nil
}

func (s *FileStore) Put(record CooldownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[record.Subject] = record
	return s.save(records)
}

func (s *FileStore) Delete(subject domain.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	delete(records, subject)
	return s.save(records)
}

func (s *FileStore) load() (map[domain.Subject]CooldownRecord, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[domain.Subject]CooldownRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cooldown file: %w", err)
	}

	records := make(map[domain.Subject]CooldownRecord)
	if err := json.Unmarshal(raw, &records); err != nil {
		// Corrupt state is discarded, the server limit still holds.
		return make(map[domain.Subject]CooldownRecord), nil
	}
	return records, nil
}

func (s *FileStore) save(records map[domain.Subject]CooldownRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cooldown records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cooldown directory: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write cooldown file: %w", err)
	}
	return nil
}
