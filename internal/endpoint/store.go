package endpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrEndpointNotFound is returned when a name is not present in the store.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrMalformedStore is returned when the persisted store cannot be parsed.
	ErrMalformedStore = errors.New("malformed endpoint store")
)

// record is the persisted shape of one endpoint. The ANTHROPIC_* keys are the
// environment-variable layout older store files used.
type record struct {
	BaseURL string `json:"base_url,omitempty"`
	Secret  string `json:"secret,omitempty"`

	LegacyBaseURL   string `json:"ANTHROPIC_BASE_URL,omitempty"`
	LegacyAuthToken string `json:"ANTHROPIC_AUTH_TOKEN,omitempty"`
	LegacyAPIKey    string `json:"ANTHROPIC_API_KEY,omitempty"`
}

func (r record) endpoint(name string) Endpoint {
	ep := Endpoint{Name: name, BaseURL: r.BaseURL, Secret: r.Secret}
	if ep.BaseURL == "" {
		ep.BaseURL = r.LegacyBaseURL
	}
	if ep.Secret == "" {
		ep.Secret = r.LegacyAuthToken
	}
	if ep.Secret == "" {
		ep.Secret = r.LegacyAPIKey
	}
	return ep
}

// Store is the ordered mapping of endpoint name to endpoint.
// It is not safe for concurrent mutation; callers must not modify it during a scan.
type Store struct {
	endpoints []Endpoint
	index     map[string]int
}

// NewStore builds a store from endpoints in declaration order.
func NewStore(endpoints ...Endpoint) (*Store, error) {
	s := &Store{index: make(map[string]int, len(endpoints))}
	for _, ep := range endpoints {
		if _, exists := s.index[ep.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", ErrMalformedStore, ep.Name)
		}
		if err := s.Put(ep); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Load reads and parses the plaintext store at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoint store: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON object of endpoints, keeping the key order.
func Parse(data []byte) (*Store, error) {
	s := &Store{index: make(map[string]int)}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedStore)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
		}
		name, _ := tok.(string)

		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: endpoint %q: %v", ErrMalformedStore, name, err)
		}

		if _, exists := s.index[name]; exists {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", ErrMalformedStore, name)
		}

		ep := rec.endpoint(name)
		// Missing fields only make an endpoint ineligible; a present but unusable URL is a broken store.
		if strings.TrimSpace(ep.BaseURL) != "" {
			if err := validation.Validate(ep.BaseURL, validation.By(validateBaseURL)); err != nil {
				return nil, fmt.Errorf("%w: endpoint %q: base_url %v", ErrMalformedStore, name, err)
			}
		}
		if err := s.Put(ep); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after store object", ErrMalformedStore)
	}

	return s, nil
}

// Marshal encodes the store as an indented JSON object in declaration order.
func (s *Store) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	for i, ep := range s.endpoints {
		if i > 0 {
			buf.WriteString(",")
		}

		key, err := json.Marshal(ep.Name)
		if err != nil {
			return nil, fmt.Errorf("encode endpoint name: %w", err)
		}
		val, err := json.MarshalIndent(record{BaseURL: ep.BaseURL, Secret: ep.Secret}, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode endpoint %q: %w", ep.Name, err)
		}

		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}

	if len(s.endpoints) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

// Save writes the store to path, replacing any existing file atomically.
func (s *Store) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// Get returns the endpoint with the given name.
func (s *Store) Get(name string) (Endpoint, error) {
	i, ok := s.index[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrEndpointNotFound, name)
	}
	return s.endpoints[i], nil
}

// FindByBaseURL returns the first endpoint whose base URL matches, ignoring a trailing slash.
func (s *Store) FindByBaseURL(baseURL string) (Endpoint, bool) {
	want := strings.TrimRight(baseURL, "/")
	if want == "" {
		return Endpoint{}, false
	}
	for _, ep := range s.endpoints {
		if strings.TrimRight(ep.BaseURL, "/") == want {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Endpoints returns a copy of all endpoints in declaration order.
func (s *Store) Endpoints() []Endpoint {
	out := make([]Endpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}

// Names returns endpoint names in declaration order.
func (s *Store) Names() []string {
	names := make([]string, len(s.endpoints))
	for i, ep := range s.endpoints {
		names[i] = ep.Name
	}
	return names
}

// Len returns the number of endpoints.
func (s *Store) Len() int {
	return len(s.endpoints)
}

// Put adds an endpoint or replaces the one with the same name in place.
func (s *Store) Put(ep Endpoint) error {
	if strings.TrimSpace(ep.Name) == "" {
		return errors.New("endpoint name cannot be empty")
	}

	if s.index == nil {
		s.index = make(map[string]int)
	}

	if i, ok := s.index[ep.Name]; ok {
		s.endpoints[i] = ep
		return nil
	}

	s.index[ep.Name] = len(s.endpoints)
	s.endpoints = append(s.endpoints, ep)
	return nil
}

// Remove deletes the named endpoint.
func (s *Store) Remove(name string) error {
	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, name)
	}

	s.endpoints = append(s.endpoints[:i], s.endpoints[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.endpoints); j++ {
		s.index[s.endpoints[j].Name] = j
	}
	return nil
}

// WriteFileAtomic writes data to a unique temporary sibling with the given
// permissions and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
