package gate

import "sync"

// CredentialExchange holds transient FormCred records between the login
// POST and the next request to a protected resource. Records are single-use
// capabilities: the only read accessor removes the record as a side effect.
type CredentialExchange struct {
	mu   sync.Mutex
	data map[string]FormCred
}

// NewCredentialExchange creates an empty exchange.
func NewCredentialExchange() *CredentialExchange {
	return &CredentialExchange{data: make(map[string]FormCred)}
}

// Put stores the record under its token.
func (c *CredentialExchange) Put(fc FormCred) {
	c.mu.Lock()
	c.data[fc.FormCredID] = fc
	c.mu.Unlock()
}

// TakeAndRemove returns the record for token and deletes it under the same
// lock hold, so two concurrent requests presenting the same token cannot
// both observe it.
func (c *CredentialExchange) TakeAndRemove(token string) (FormCred, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc, ok := c.data[token]
	if !ok {
		return FormCred{}, false
	}
	delete(c.data, token)
	return fc, true
}

// Len reports the number of pending records.
func (c *CredentialExchange) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
