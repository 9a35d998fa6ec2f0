package domain

import "time"

// Verifier is a principal authorized to approve or reject proposed results.
// The contract's verifiers mapping is the authorization truth; this record
// carries the display metadata the projection keeps alongside it.
type Verifier struct {
	Address string
	Name    string
	AddedBy string
	AddedAt time.Time
	Active  bool
}
