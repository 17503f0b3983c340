package matching

import "math"

// ScoringEngine computes the six weighted components of a match score.
type ScoringEngine struct {
	config Config
}

func NewScoringEngine(config Config) *ScoringEngine {
	return &ScoringEngine{config: config}
}

func (s *ScoringEngine) Score(request BookingRequest, candidate CandidateProvider, tier GeoTier, distanceMiles float64) ComponentScores {
	return ComponentScores{
		ZipProximity: s.ZipProximityScore(tier),
		Distance:     s.DistanceScore(distanceMiles),
		Rating:       s.RatingScore(candidate.Rating),
		Experience:   s.ExperienceScore(candidate.ExperienceMonths),
		JobHistory:   s.JobHistoryScore(candidate.CompletedJobCount),
		Price:        s.PriceScore(candidate.HourlyRate, request.BudgetCeiling),
	}
}

func (s *ScoringEngine) ZipProximityScore(tier GeoTier) float64 {
	switch tier {
	case TierExact:
		return MaxZipProximityScore
	case TierArea:
		return MaxZipProximityScore * 0.75
	case TierRegion:
		return MaxZipProximityScore * 0.5
	}
	return 0
}

func (s *ScoringEngine) DistanceScore(distanceMiles float64) float64 {
	if math.IsNaN(distanceMiles) {
		return 0
	}
	return clamp(MaxDistanceScore*(1-distanceMiles/s.config.CapDistanceMiles), MaxDistanceScore)
}

func (s *ScoringEngine) RatingScore(rating *float64) float64 {
	return clamp(s.EffectiveRating(rating)/MaxRating*MaxRatingScore, MaxRatingScore)
}

// EffectiveRating substitutes the neutral rating for an unrated provider.
func (s *ScoringEngine) EffectiveRating(rating *float64) float64 {
	if rating == nil {
		return s.config.NeutralRating
	}
	return *rating
}

func (s *ScoringEngine) ExperienceScore(months int) float64 {
	capped := math.Min(float64(months), float64(s.config.ExperienceCapMonths))
	return clamp(MaxExperienceScore*capped/float64(s.config.ExperienceCapMonths), MaxExperienceScore)
}

func (s *ScoringEngine) JobHistoryScore(completed int) float64 {
	capped := math.Min(float64(completed), float64(s.config.JobHistoryCapCount))
	return clamp(MaxJobHistoryScore*capped/float64(s.config.JobHistoryCapCount), MaxJobHistoryScore)
}

// PriceScore is full marks within budget and decays linearly to zero at the
// configured overage percentage.
func (s *ScoringEngine) PriceScore(hourlyRate float64, budgetCeiling *float64) float64 {
	if budgetCeiling == nil || hourlyRate <= *budgetCeiling {
		return MaxPriceScore
	}
	if *budgetCeiling <= 0 {
		return 0
	}
	overagePct := (hourlyRate - *budgetCeiling) / *budgetCeiling * 100
	return clamp(MaxPriceScore*(1-overagePct/s.config.PriceOverageThresholdPct), MaxPriceScore)
}

func clamp(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
