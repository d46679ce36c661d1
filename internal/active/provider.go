package active

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

const (
	EnvBaseURL   = "ANTHROPIC_BASE_URL"
	EnvAuthToken = "ANTHROPIC_AUTH_TOKEN"
)

// Provider reads and sets the active endpoint. Active returns "" when none is
// configured.
type Provider interface {
	Active(ctx context.Context) (string, error)
	Activate(ctx context.Context, ep endpoint.Endpoint) error
}

// EnvProvider exports the active endpoint into the process environment and
// remembers its name in a state file so later runs can find it.
type EnvProvider struct {
	statePath string
	store     *endpoint.Store
	setenv    func(key, value string) error
	getenv    func(key string) string
}

func NewEnvProvider(statePath string, store *endpoint.Store) *EnvProvider {
	return &EnvProvider{
		statePath: statePath,
		store:     store,
		setenv:    os.Setenv,
		getenv:    os.Getenv,
	}
}

// Active returns the name in the state file, or the endpoint whose base URL
// matches ANTHROPIC_BASE_URL when no state has been written yet.
func (p *EnvProvider) Active(_ context.Context) (string, error) {
	data, err := os.ReadFile(p.statePath)
	switch {
	case err == nil:
		if name := strings.TrimSpace(string(data)); name != "" {
			return name, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read active endpoint: %w", err)
	}

	if p.store != nil {
		if ep, ok := p.store.FindByBaseURL(p.getenv(EnvBaseURL)); ok {
			return ep.Name, nil
		}
	}

	return "", nil
}

// Activate exports the endpoint's configuration and persists its name.
func (p *EnvProvider) Activate(_ context.Context, ep endpoint.Endpoint) error {
	if err := p.setenv(EnvBaseURL, ep.BaseURL); err != nil {
		return fmt.Errorf("set %s: %w", EnvBaseURL, err)
	}
	if err := p.setenv(EnvAuthToken, ep.Secret); err != nil {
		return fmt.Errorf("set %s: %w", EnvAuthToken, err)
	}
	if err := endpoint.WriteFileAtomic(p.statePath, []byte(ep.Name+"\n"), 0o600); err != nil {
		return fmt.Errorf("persist active endpoint: %w", err)
	}
	return nil
}

// MemoryProvider is an in-process Provider.
type MemoryProvider struct {
	mu          sync.Mutex
	current     string
	activations []string
	err         error
}

func NewMemoryProvider(current string) *MemoryProvider {
	return &MemoryProvider{current: current}
}

func (p *MemoryProvider) Active(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *MemoryProvider) Activate(_ context.Context, ep endpoint.Endpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.current = ep.Name
	p.activations = append(p.activations, ep.Name)
	return nil
}

// FailActivations makes every later Activate return err; nil restores success.
func (p *MemoryProvider) FailActivations(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Activations lists every endpoint activated so far, oldest first.
func (p *MemoryProvider) Activations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.activations))
	copy(out, p.activations)
	return out
}
