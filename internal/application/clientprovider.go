package application

import (
	"sync"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// ClientProvider enables runtime hot-swap of the DevOps client. It holds
// a mutex-protected reference to the current driven.DevOpsReader and its
// organization, allowing credential or organization updates to take
// effect without restarting the application.
type ClientProvider struct {
	mu     sync.RWMutex
	client driven.DevOpsReader
	org    string
}

// NewClientProvider creates a provider with the given initial client and
// organization name.
func NewClientProvider(client driven.DevOpsReader, org string) *ClientProvider {
	return &ClientProvider{
		client: client,
		org:    org,
	}
}

// Get returns the current DevOps client.
func (p *ClientProvider) Get() driven.DevOpsReader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Org returns the organization the current client targets.
func (p *ClientProvider) Org() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.org
}

// Replace swaps the current client and organization. The next caller of
// Get() or Org() receives the new values.
func (p *ClientProvider) Replace(client driven.DevOpsReader, org string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	p.org = org
}
