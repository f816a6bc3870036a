// Package proposal exposes the Proposal type and some of its methods.
package proposal

import "fmt"

// Proposal is the immutable triple moved around by the protocol.
// Csn identifies the log slot, Psn is the proposal number for the round, and
// V is the opaque value being proposed.
// Psns are globally unique across proposers: each node seeds its counter at
// its own num and advances by the membership size, so the counters never
// collide and ties cannot occur.
type Proposal struct {
	Csn int    `json:"csn"` // command sequence number, i.e. the log slot
	Psn int    `json:"psn"` // proposal number, totally ordered across all nodes
	V   string `json:"v"`   // opaque value
}

// IsGreaterThan overrides the ">" operator for Proposal objects.
func (p *Proposal) IsGreaterThan(other *Proposal) bool {
	return p.Psn > other.Psn
}

// IsEqualTo overrides the "==" operator for Proposal objects.
func (p *Proposal) IsEqualTo(other *Proposal) bool {
	return p.Psn == other.Psn
}

// IsGEThan overrides the ">=" operator for Proposal objects.
func (p *Proposal) IsGEThan(other *Proposal) bool {
	return p.IsGreaterThan(other) || p.IsEqualTo(other)
}

func (p *Proposal) String() string {
	return fmt.Sprintf("(csn: %d, psn: %d, v: %s)", p.Csn, p.Psn, p.V)
}
