package idhash

import (
	"testing"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

func TestSightingID(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		provenance domain.Provenance
		observedAt int64
	}{
		{"live", "So11111111111111111111111111111111111111112", domain.ProvenanceLive, 1735732800000},
		{"snapshot", "So11111111111111111111111111111111111111112", domain.ProvenanceSnapshot, 1735732800000},
		{"empty address", "", domain.ProvenanceLive, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SightingID(tt.address, tt.provenance, tt.observedAt)

			if len(got) != 64 {
				t.Errorf("SightingID() length = %d, want 64", len(got))
			}
			if again := SightingID(tt.address, tt.provenance, tt.observedAt); got != again {
				t.Errorf("SightingID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestSightingID_Uniqueness(t *testing.T) {
	base := SightingID("Mint", domain.ProvenanceLive, 1000)

	variants := map[string]string{
		"address":     SightingID("Mint2", domain.ProvenanceLive, 1000),
		"provenance":  SightingID("Mint", domain.ProvenanceSnapshot, 1000),
		"observed_at": SightingID("Mint", domain.ProvenanceLive, 1001),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s should change the id", field)
		}
	}
}

func TestSightingID_KnownValue(t *testing.T) {
	// sha256("A|LIVE|1")
	want := "0264694d19f895a1972441dccaaaae23b2ab1102f5d93f6511e1299cd0f549af"
	if got := SightingID("A", domain.ProvenanceLive, 1); got != want {
		t.Errorf("SightingID() = %s, want %s", got, want)
	}
}
