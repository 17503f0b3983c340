package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPostal(t *testing.T) {
	g := NewGeoTierClassifier(DefaultConfig())

	tests := []struct {
		name         string
		request      string
		candidate    string
		wantTier     GeoTier
		wantDistance float64
	}{
		{"exact", "10001", "10001", TierExact, 2},
		{"exact after normalization", "sw1a 1aa", "SW1A1AA", TierExact, 2},
		{"area", "10001", "10099", TierArea, 8},
		{"region", "10001", "10599", TierRegion, 15},
		{"distant", "10001", "20002", TierDistant, 50},
		{"empty candidate", "10001", "", TierDistant, 50},
		{"short codes", "1", "1X", TierDistant, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, distance := g.ClassifyPostal(tt.request, tt.candidate)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantDistance, distance)
		})
	}
}

func TestClassify_ServicedPrefixes(t *testing.T) {
	g := NewGeoTierClassifier(DefaultConfig())
	req := Location{PostalCode: "10001"}

	tests := []struct {
		name     string
		postal   string
		prefixes []string
		want     GeoTier
	}{
		{"area prefix upgrades distant", "20002", []string{"100"}, TierArea},
		{"region prefix upgrades distant", "20002", []string{"10"}, TierRegion},
		{"longer prefix still area", "20002", []string{"1000"}, TierArea},
		{"non matching prefix ignored", "20002", []string{"300", "31"}, TierDistant},
		{"prefix never beats exact", "10001", []string{"100"}, TierExact},
		{"best of several", "20002", []string{"10", "100"}, TierArea},
		{"single character prefix ignored", "20002", []string{"1"}, TierDistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCandidate("p-1", tt.postal)
			c.ServicedPrefixes = tt.prefixes
			tier, _ := g.Classify(req, c)
			assert.Equal(t, tt.want, tier)
		})
	}
}

func TestClassify_PrefersHaversine(t *testing.T) {
	g := NewGeoTierClassifier(DefaultConfig())

	req := Location{PostalCode: "10001", Coordinates: &GeoPoint{Latitude: 40, Longitude: -74}}
	c := testCandidate("p-1", "10001")
	c.Coordinates = &GeoPoint{Latitude: 41, Longitude: -74}

	tier, distance := g.Classify(req, c)
	assert.Equal(t, TierExact, tier)
	assert.InDelta(t, 69.09, distance, 0.01)

	c.Coordinates = nil
	_, distance = g.Classify(req, c)
	assert.Equal(t, 2.0, distance, "falls back to tier heuristic without coordinates")
}

func TestHaversine(t *testing.T) {
	p := GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	assert.Equal(t, 0.0, Haversine(p, p))

	la := GeoPoint{Latitude: 34.0522, Longitude: -118.2437}
	assert.InDelta(t, 2445, Haversine(p, la), 15)
	assert.InDelta(t, Haversine(p, la), Haversine(la, p), 1e-9)
}
