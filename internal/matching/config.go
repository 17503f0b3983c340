package matching

import "fmt"

const (
	MaxZipProximityScore = 25.0
	MaxDistanceScore     = 20.0
	MaxRatingScore       = 20.0
	MaxExperienceScore   = 15.0
	MaxJobHistoryScore   = 10.0
	MaxPriceScore        = 10.0

	MaxRating = 5.0
)

// Config holds the tunable weighting knobs. Point budgets are fixed.
type Config struct {
	CapDistanceMiles         float64 `mapstructure:"cap_distance_miles"`
	NeutralRating            float64 `mapstructure:"neutral_rating"`
	ExperienceCapMonths      int     `mapstructure:"experience_cap_months"`
	JobHistoryCapCount       int     `mapstructure:"job_history_cap_count"`
	PriceOverageThresholdPct float64 `mapstructure:"price_overage_threshold_pct"`

	AreaPrefixLength   int `mapstructure:"area_prefix_length"`
	RegionPrefixLength int `mapstructure:"region_prefix_length"`

	ExactDistanceMiles   float64 `mapstructure:"exact_distance_miles"`
	AreaDistanceMiles    float64 `mapstructure:"area_distance_miles"`
	RegionDistanceMiles  float64 `mapstructure:"region_distance_miles"`
	DistantDistanceMiles float64 `mapstructure:"distant_distance_miles"`

	MaxResults int `mapstructure:"max_results"`
}

func DefaultConfig() Config {
	return Config{
		CapDistanceMiles:         25,
		NeutralRating:            3.5,
		ExperienceCapMonths:      60,
		JobHistoryCapCount:       100,
		PriceOverageThresholdPct: 50,
		AreaPrefixLength:         3,
		RegionPrefixLength:       2,
		ExactDistanceMiles:       2,
		AreaDistanceMiles:        8,
		RegionDistanceMiles:      15,
		DistantDistanceMiles:     50,
		MaxResults:               0,
	}
}

func (c Config) Validate() error {
	switch {
	case c.CapDistanceMiles <= 0:
		return fmt.Errorf("%w: cap_distance_miles must be positive", ErrInvalidConfig)
	case c.NeutralRating < 0 || c.NeutralRating > MaxRating:
		return fmt.Errorf("%w: neutral_rating must be within 0-5", ErrInvalidConfig)
	case c.ExperienceCapMonths <= 0:
		return fmt.Errorf("%w: experience_cap_months must be positive", ErrInvalidConfig)
	case c.JobHistoryCapCount <= 0:
		return fmt.Errorf("%w: job_history_cap_count must be positive", ErrInvalidConfig)
	case c.PriceOverageThresholdPct <= 0:
		return fmt.Errorf("%w: price_overage_threshold_pct must be positive", ErrInvalidConfig)
	case c.RegionPrefixLength <= 0 || c.AreaPrefixLength <= c.RegionPrefixLength:
		return fmt.Errorf("%w: prefix lengths must satisfy 0 < region < area", ErrInvalidConfig)
	case c.ExactDistanceMiles < 0 || c.AreaDistanceMiles < 0 || c.RegionDistanceMiles < 0 || c.DistantDistanceMiles < 0:
		return fmt.Errorf("%w: tier distances must not be negative", ErrInvalidConfig)
	case c.MaxResults < 0:
		return fmt.Errorf("%w: max_results must not be negative", ErrInvalidConfig)
	}
	return nil
}
