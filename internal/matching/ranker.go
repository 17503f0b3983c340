package matching

import (
	"math"
	"sort"
)

// MatchRanker filters by availability, scores survivors and orders them.
type MatchRanker struct {
	config     Config
	classifier *GeoTierClassifier
	scorer     *ScoringEngine
}

func NewMatchRanker(config Config) *MatchRanker {
	return &MatchRanker{
		config:     config,
		classifier: NewGeoTierClassifier(config),
		scorer:     NewScoringEngine(config),
	}
}

func (r *MatchRanker) Rank(input ValidatedInput) RankedMatchResult {
	result := RankedMatchResult{
		RequestID:   input.Request.RequestID,
		Matches:     make([]MatchScore, 0, len(input.Candidates)),
		Exclusions:  input.Exclusions,
		Diagnostics: append([]SkippedCandidate{}, input.Diagnostics...),
	}

	for _, candidate := range input.Candidates {
		if !IsAvailable(candidate, input.Request.TimeWindow) {
			result.Exclusions.Unavailable++
			continue
		}
		result.Matches = append(result.Matches, r.scoreCandidate(input.Request, candidate))
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return rankedBefore(result.Matches[i], result.Matches[j])
	})

	if r.config.MaxResults > 0 && len(result.Matches) > r.config.MaxResults {
		result.Matches = result.Matches[:r.config.MaxResults]
	}
	result.ExcludedCount = result.Exclusions.Total()
	return result
}

func (r *MatchRanker) scoreCandidate(request BookingRequest, candidate CandidateProvider) MatchScore {
	tier, distance := r.classifier.Classify(request.Location, candidate)
	components := r.scorer.Score(request, candidate, tier, distance)
	return MatchScore{
		ProviderID:             candidate.ProviderID,
		ComponentScores:        components,
		TotalScore:             roundScore(components.Total()),
		Tier:                   tier,
		EstimatedDistanceMiles: distance,
		Rating:                 r.scorer.EffectiveRating(candidate.Rating),
		CompletedJobCount:      candidate.CompletedJobCount,
		HourlyRate:             candidate.HourlyRate,
	}
}

// scoreResolution bounds float noise in summed components so equal totals
// compare equal and fall through to the tie-break.
const scoreResolution = 1e6

func roundScore(v float64) float64 {
	return math.Round(v*scoreResolution) / scoreResolution
}

// rankedBefore applies total score then the tie-break cascade:
// rating, completed jobs, lower rate, providerId.
func rankedBefore(a, b MatchScore) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.CompletedJobCount != b.CompletedJobCount {
		return a.CompletedJobCount > b.CompletedJobCount
	}
	if a.HourlyRate != b.HourlyRate {
		return a.HourlyRate < b.HourlyRate
	}
	return a.ProviderID < b.ProviderID
}
