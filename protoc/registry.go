package protoc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs the client of an account.
type BuildFunc func(ctx context.Context) (Client, error)

// Registry resolves the client of an account. Clients are built lazily,
// once, and shared by every worker of that account.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuildFunc
	clients  map[string]Client
	group    singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuildFunc),
		clients:  make(map[string]Client),
	}
}

// Register adds (or replaces) the builder of an account.
func (r *Registry) Register(account string, build BuildFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[account] = build
	delete(r.clients, account)
}

// RegisterClient adds an already built client.
func (r *Registry) RegisterClient(account string, client Client) {
	r.Register(account, func(context.Context) (Client, error) { return client, nil })
}

// Get returns the client of an account, building it on first use.
func (r *Registry) Get(ctx context.Context, account string) (client Client, err error) {
	r.mu.RLock()
	client, ok := r.clients[account]
	build, known := r.builders[account]
	r.mu.RUnlock()
	if ok {
		return
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}

	v, err, _ := r.group.Do(account, func() (any, error) {
		c, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build client for %s: %w", account, err)
		}
		r.mu.Lock()
		r.clients[account] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return
	}
	client = v.(Client)
	return
}

// Accounts returns the registered account names, sorted.
func (r *Registry) Accounts() (accounts []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.builders {
		accounts = append(accounts, name)
	}
	sort.Strings(accounts)
	return
}
