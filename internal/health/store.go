package health

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

// Store owns HealthRecord persistence. Get on an unseen endpoint returns an
// unknown record and false.
type Store interface {
	Get(name string) (Record, bool)
	Put(name string, rec Record) error
	All() map[string]Record
	Reset() error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return Record{Status: StatusUnknown}, false
	}
	return rec, true
}

func (s *MemoryStore) Put(name string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = rec
	return nil
}

func (s *MemoryStore) All() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.records)
}

func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

// FileStore keeps records in a JSON file, rewritten atomically on every change.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]Record
}

// NewFileStore loads existing records from path, if present.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return Record{Status: StatusUnknown}, false
	}
	return rec, true
}

func (s *FileStore) Put(name string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = rec
	return s.persist()
}

func (s *FileStore) All() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.records)
}

func (s *FileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove health records: %w", err)
	}
	return nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = make(map[string]Record)
			return nil
		}
		return fmt.Errorf("read health records: %w", err)
	}

	if len(data) == 0 {
		s.records = make(map[string]Record)
		return nil
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse health records: %w", err)
	}
	if records == nil {
		records = make(map[string]Record)
	}

	s.records = records
	return nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode health records: %w", err)
	}
	return endpoint.WriteFileAtomic(s.path, data, 0o644)
}
