package matching

import "time"

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Location struct {
	PostalCode  string    `json:"postalCode"`
	Coordinates *GeoPoint `json:"coordinates,omitempty"`
}

// TimeWindow is the requested service period, [Start, Start+Duration).
type TimeWindow struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

func (w TimeWindow) End() time.Time {
	return w.Start.Add(w.Duration)
}

func (w TimeWindow) Interval() Interval {
	return Interval{Start: w.Start, End: w.End()}
}

type BookingRequest struct {
	RequestID     string     `json:"requestId"`
	ServiceType   string     `json:"serviceType"`
	Location      Location   `json:"location"`
	TimeWindow    TimeWindow `json:"timeWindow"`
	BudgetCeiling *float64   `json:"budgetCeiling,omitempty"`
}

// Interval is half-open: Start is included, End is not.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeeklyWindow is a recurring slot on one weekday, in minutes after local midnight.
type WeeklyWindow struct {
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"startMinute"`
	EndMinute   int          `json:"endMinute"`
	TimeZone    string       `json:"timeZone,omitempty"`
}

type DeclaredAvailability struct {
	Windows []Interval     `json:"windows,omitempty"`
	Weekly  []WeeklyWindow `json:"weekly,omitempty"`
}

func (d DeclaredAvailability) IsEmpty() bool {
	return len(d.Windows) == 0 && len(d.Weekly) == 0
}

type CandidateProvider struct {
	ProviderID           string               `json:"providerId"`
	PostalCode           string               `json:"postalCode"`
	ServicedPrefixes     []string             `json:"servicedPrefixes,omitempty"`
	Coordinates          *GeoPoint            `json:"coordinates,omitempty"`
	Rating               *float64             `json:"rating,omitempty"`
	ExperienceMonths     int                  `json:"experienceMonths"`
	CompletedJobCount    int                  `json:"completedJobCount"`
	HourlyRate           float64              `json:"hourlyRate"`
	ServiceTypes         []string             `json:"serviceTypes"`
	CommittedSlots       []Interval           `json:"committedSlots,omitempty"`
	DeclaredAvailability DeclaredAvailability `json:"declaredAvailability"`
	Active               bool                 `json:"active"`
}

type GeoTier string

const (
	TierExact   GeoTier = "Exact"
	TierArea    GeoTier = "Area"
	TierRegion  GeoTier = "Region"
	TierDistant GeoTier = "Distant"
)

// rank orders tiers from closest (0) to farthest.
func (t GeoTier) rank() int {
	switch t {
	case TierExact:
		return 0
	case TierArea:
		return 1
	case TierRegion:
		return 2
	default:
		return 3
	}
}

type ComponentScores struct {
	ZipProximity float64 `json:"zipProximity"`
	Distance     float64 `json:"distance"`
	Rating       float64 `json:"rating"`
	Experience   float64 `json:"experience"`
	JobHistory   float64 `json:"jobHistory"`
	Price        float64 `json:"price"`
}

func (c ComponentScores) Total() float64 {
	return c.ZipProximity + c.Distance + c.Rating + c.Experience + c.JobHistory + c.Price
}

type MatchScore struct {
	ProviderID             string          `json:"providerId"`
	ComponentScores        ComponentScores `json:"componentScores"`
	TotalScore             float64         `json:"totalScore"`
	Tier                   GeoTier         `json:"tier"`
	EstimatedDistanceMiles float64         `json:"estimatedDistanceMiles"`
	Rating                 float64         `json:"rating"`
	CompletedJobCount      int             `json:"completedJobCount"`
	HourlyRate             float64         `json:"hourlyRate"`
}

// ExclusionCounts breaks down why candidates never reached scoring.
type ExclusionCounts struct {
	Inactive        int `json:"inactive"`
	ServiceMismatch int `json:"serviceMismatch"`
	Malformed       int `json:"malformed"`
	Unavailable     int `json:"unavailable"`
}

func (e ExclusionCounts) Total() int {
	return e.Inactive + e.ServiceMismatch + e.Malformed + e.Unavailable
}

type SkippedCandidate struct {
	ProviderID string `json:"providerId"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type RankedMatchResult struct {
	RequestID     string             `json:"requestId"`
	Matches       []MatchScore       `json:"matches"`
	ExcludedCount int                `json:"excludedCount"`
	Exclusions    ExclusionCounts    `json:"exclusions"`
	Diagnostics   []SkippedCandidate `json:"diagnostics"`
}

// TopPick returns the highest ranked match for auto-assignment.
func (r RankedMatchResult) TopPick() (MatchScore, bool) {
	if len(r.Matches) == 0 {
		return MatchScore{}, false
	}
	return r.Matches[0], true
}

func (r RankedMatchResult) HasMatches() bool {
	return len(r.Matches) > 0
}
