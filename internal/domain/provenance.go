package domain

// Provenance records which ingestion path produced a record's latest value.
type Provenance string

const (
	ProvenanceSnapshot Provenance = "SNAPSHOT"
	ProvenanceLive     Provenance = "LIVE"
)

// String returns the string representation of Provenance.
func (p Provenance) String() string {
	return string(p)
}

// IsValid checks if the provenance is a valid value.
func (p Provenance) IsValid() bool {
	return p == ProvenanceSnapshot || p == ProvenanceLive
}
