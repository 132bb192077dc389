package aiclient

import "sync/atomic"

// CredentialPool rotates through API keys round-robin, spreading requests
// across provider accounts so one key's rate limit doesn't throttle the
// whole service.
type CredentialPool struct {
	keys []string
	next atomic.Uint64
}

// NewCredentialPool creates a pool from the given keys.
func NewCredentialPool(keys []string) (*CredentialPool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	return &CredentialPool{keys: keys}, nil
}

// Next returns the next key in rotation. Safe for concurrent use.
func (p *CredentialPool) Next() string {
	n := p.next.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

// Size returns the number of keys in the pool.
func (p *CredentialPool) Size() int {
	return len(p.keys)
}
