package matching

import (
	"math"
	"strings"
)

const earthRadiusMiles = 3958.8

// GeoTierClassifier derives proximity tiers from shared postal-code prefixes.
type GeoTierClassifier struct {
	config Config
}

func NewGeoTierClassifier(config Config) *GeoTierClassifier {
	return &GeoTierClassifier{config: config}
}

// ClassifyPostal compares two postal codes.
func (g *GeoTierClassifier) ClassifyPostal(requestPostal, candidatePostal string) (GeoTier, float64) {
	tier := g.postalTier(normalizePostal(requestPostal), normalizePostal(candidatePostal))
	return tier, g.tierDistance(tier)
}

// Classify picks the closest tier across the candidate's registered code and
// serviced prefixes. Haversine distance replaces the tier heuristic when
// both sides carry coordinates.
func (g *GeoTierClassifier) Classify(request Location, candidate CandidateProvider) (GeoTier, float64) {
	reqPostal := normalizePostal(request.PostalCode)

	best := g.postalTier(reqPostal, normalizePostal(candidate.PostalCode))
	for _, prefix := range candidate.ServicedPrefixes {
		if t := g.prefixTier(reqPostal, normalizePostal(prefix)); t.rank() < best.rank() {
			best = t
		}
	}

	if request.Coordinates != nil && candidate.Coordinates != nil {
		return best, Haversine(*request.Coordinates, *candidate.Coordinates)
	}
	return best, g.tierDistance(best)
}

func (g *GeoTierClassifier) postalTier(a, b string) GeoTier {
	switch {
	case a == "" || b == "":
		return TierDistant
	case a == b:
		return TierExact
	case sharesPrefix(a, b, g.config.AreaPrefixLength):
		return TierArea
	case sharesPrefix(a, b, g.config.RegionPrefixLength):
		return TierRegion
	}
	return TierDistant
}

// prefixTier classifies against a serviced prefix. A prefix never yields
// Exact; its length decides how specific a match it can be.
func (g *GeoTierClassifier) prefixTier(request, prefix string) GeoTier {
	if prefix == "" || !strings.HasPrefix(request, prefix) {
		return TierDistant
	}
	switch {
	case len(prefix) >= g.config.AreaPrefixLength:
		return TierArea
	case len(prefix) >= g.config.RegionPrefixLength:
		return TierRegion
	}
	return TierDistant
}

func (g *GeoTierClassifier) tierDistance(tier GeoTier) float64 {
	switch tier {
	case TierExact:
		return g.config.ExactDistanceMiles
	case TierArea:
		return g.config.AreaDistanceMiles
	case TierRegion:
		return g.config.RegionDistanceMiles
	}
	return g.config.DistantDistanceMiles
}

func sharesPrefix(a, b string, n int) bool {
	if n <= 0 || len(a) < n || len(b) < n {
		return false
	}
	return a[:n] == b[:n]
}

func normalizePostal(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// Haversine returns the great-circle distance in miles.
func Haversine(a, b GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}
