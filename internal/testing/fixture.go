package testing

import (
	_ "embed"
	"testing"

	"github.com/teranos/taxa/dataset"
)

// Namespace ids of the fixture dataset.
const (
	NCBI = "ncbi_taxonomy"
	GTDB = "gtdb"
	RDP  = "rdp_taxonomy"
)

// FixtureTS falls after 15792:22:1 was associated with taxon 287 and before
// 15792:22:2 was.
const FixtureTS int64 = 1569888060000

//go:embed testdata/taxa.yaml
var fixtureYAML []byte

// FixtureYAML returns the raw fixture document.
func FixtureYAML() []byte {
	return append([]byte(nil), fixtureYAML...)
}

// Fixture parses a fresh copy of the fixture dataset.
func Fixture(t testing.TB) *dataset.Dataset {
	t.Helper()

	d, err := dataset.Parse(fixtureYAML)
	if err != nil {
		t.Fatalf("Failed to parse fixture dataset: %v", err)
	}
	return d
}
