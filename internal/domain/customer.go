package domain

import (
	"sort"
	"sync"
)

// Customer owns a set of accounts, referenced by account number. The accounts
// themselves live in the registry.
type Customer struct {
	id string

	mu       sync.RWMutex
	name     string
	accounts map[string]struct{}
}

func NewCustomer(id, name string) *Customer {
	return &Customer{
		id:       id,
		name:     name,
		accounts: make(map[string]struct{}),
	}
}

func (c *Customer) ID() string { return c.id }

func (c *Customer) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Customer) Rename(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *Customer) AddAccount(number string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[number] = struct{}{}
}

func (c *Customer) Owns(number string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.accounts[number]
	return ok
}

// Accounts returns the owned account numbers in sorted order.
func (c *Customer) Accounts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.accounts))
	for n := range c.accounts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
