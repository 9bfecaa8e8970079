// Package keypool rotates a fixed set of provider credentials. Entries that
// hit a quota are disabled for the rest of the process.
package keypool

import (
	"sync/atomic"
)

// Credential is a named API secret.
type Credential struct {
	Name   string
	Secret string
}

type entry struct {
	cred    Credential
	enabled atomic.Bool
}

// Pool is safe for concurrent use. The enabled flags and the cursor are
// updated independently; a disable racing a rotate may skip one extra slot.
type Pool struct {
	provider string
	entries  []*entry
	cursor   atomic.Uint64
}

// New creates a pool with every credential enabled.
func New(provider string, creds []Credential) *Pool {
	p := &Pool{provider: provider, entries: make([]*entry, 0, len(creds))}
	for _, c := range creds {
		e := &entry{cred: c}
		e.enabled.Store(true)
		p.entries = append(p.entries, e)
	}
	return p
}

// Provider is the backend this pool authenticates against.
func (p *Pool) Provider() string { return p.provider }

// Size is the total number of credentials, enabled or not.
func (p *Pool) Size() int { return len(p.entries) }

// GetActive returns the first enabled credential at or after the cursor,
// wrapping around once. It does not move the cursor.
func (p *Pool) GetActive() (Credential, bool) {
	n := uint64(len(p.entries))
	if n == 0 {
		return Credential{}, false
	}

	start := p.cursor.Load()
	for i := uint64(0); i < n; i++ {
		e := p.entries[(start+i)%n]
		if e.enabled.Load() {
			return e.cred, true
		}
	}
	return Credential{}, false
}

// Rotate advances the cursor by one slot.
func (p *Pool) Rotate() {
	p.cursor.Add(1)
}

// Disable marks every entry holding secret as unusable, then rotates.
func (p *Pool) Disable(secret string) {
	for _, e := range p.entries {
		if e.cred.Secret == secret {
			e.enabled.Store(false)
		}
	}
	p.Rotate()
}

// ActiveCount is the number of credentials still enabled.
func (p *Pool) ActiveCount() int {
	n := 0
	for _, e := range p.entries {
		if e.enabled.Load() {
			n++
		}
	}
	return n
}

// Names lists credential names in pool order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.cred.Name
	}
	return names
}
