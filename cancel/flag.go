// Package cancel holds the cooperative stop signal shared between the
// control surfaces and the pipeline.
package cancel

import "sync/atomic"

// Flag is a one-way switch. Once set it stays set for the run; start a new
// run with a new Flag.
type Flag struct {
	set atomic.Bool
}

func New() *Flag { return &Flag{} }

// Set requests cancellation. Safe to call more than once.
func (f *Flag) Set() { f.set.Store(true) }

// IsSet reports whether cancellation was requested. A nil Flag is never set.
func (f *Flag) IsSet() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}
