package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidatedInput is a normalized request plus the candidates eligible for ranking.
type ValidatedInput struct {
	Request     BookingRequest
	Candidates  []CandidateProvider
	Exclusions  ExclusionCounts
	Diagnostics []SkippedCandidate
}

type Validator struct {
	Now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{Now: time.Now}
}

// ValidateRequest rejects requests that cannot be matched and returns a
// normalized copy of the rest.
func (v *Validator) ValidateRequest(request BookingRequest) (BookingRequest, error) {
	now := v.Now()
	if request.TimeWindow.Duration <= 0 {
		return BookingRequest{}, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidTimeWindow, request.TimeWindow.Duration)
	}
	if !request.TimeWindow.Start.After(now) {
		return BookingRequest{}, fmt.Errorf("%w: start %s is not in the future", ErrInvalidTimeWindow, request.TimeWindow.Start.Format(time.RFC3339))
	}

	serviceType := normalizeServiceType(request.ServiceType)
	if serviceType == "" {
		return BookingRequest{}, fmt.Errorf("%w: service type is required", ErrInvalidServiceType)
	}

	normalized := request
	normalized.ServiceType = serviceType
	normalized.Location.PostalCode = normalizePostal(request.Location.PostalCode)
	if request.Location.Coordinates != nil {
		c := *request.Location.Coordinates
		normalized.Location.Coordinates = &c
	}
	if request.BudgetCeiling != nil {
		b := *request.BudgetCeiling
		normalized.BudgetCeiling = &b
	}
	return normalized, nil
}

// Validate checks the request and filters the pool. Request errors abort the
// call; defective candidates are dropped and reported in Diagnostics.
func (v *Validator) Validate(request BookingRequest, pool []CandidateProvider) (ValidatedInput, error) {
	normalized, err := v.ValidateRequest(request)
	if err != nil {
		return ValidatedInput{}, err
	}

	out := ValidatedInput{
		Request:     normalized,
		Candidates:  make([]CandidateProvider, 0, len(pool)),
		Diagnostics: []SkippedCandidate{},
	}
	seen := make(map[string]bool, len(pool))

	for _, candidate := range pool {
		if !candidate.Active {
			out.Exclusions.Inactive++
			continue
		}
		if !offersService(candidate, normalized.ServiceType) {
			out.Exclusions.ServiceMismatch++
			continue
		}
		if reason := malformedReason(candidate, seen); reason != "" {
			out.Exclusions.Malformed++
			out.Diagnostics = append(out.Diagnostics, SkippedCandidate{
				ProviderID: candidate.ProviderID,
				Code:       CodeMalformedCandidate,
				Reason:     reason,
			})
			continue
		}
		seen[candidate.ProviderID] = true
		out.Candidates = append(out.Candidates, normalizeCandidate(candidate))
	}
	return out, nil
}

func malformedReason(c CandidateProvider, seen map[string]bool) string {
	switch {
	case strings.TrimSpace(c.ProviderID) == "":
		return "missing providerId"
	case seen[c.ProviderID]:
		return "duplicate providerId"
	case normalizePostal(c.PostalCode) == "":
		return "missing postalCode"
	case c.HourlyRate <= 0 || math.IsNaN(c.HourlyRate) || math.IsInf(c.HourlyRate, 0):
		return "hourlyRate must be positive"
	case c.ExperienceMonths < 0:
		return "experienceMonths must not be negative"
	case c.CompletedJobCount < 0:
		return "completedJobCount must not be negative"
	case c.Rating != nil && (*c.Rating < 0 || *c.Rating > MaxRating || math.IsNaN(*c.Rating)):
		return fmt.Sprintf("rating %.2f outside 0-5", *c.Rating)
	}
	if err := checkAvailabilityData(c); err != nil && !errors.Is(err, errNoDeclaredAvailability) {
		return "corrupt availability: " + err.Error()
	}
	return ""
}

func offersService(c CandidateProvider, serviceType string) bool {
	for _, s := range c.ServiceTypes {
		if normalizeServiceType(s) == serviceType {
			return true
		}
	}
	return false
}

// normalizeCandidate returns a deep copy so ranking never aliases caller data.
func normalizeCandidate(c CandidateProvider) CandidateProvider {
	out := c
	out.PostalCode = normalizePostal(c.PostalCode)

	out.ServicedPrefixes = make([]string, len(c.ServicedPrefixes))
	for i, p := range c.ServicedPrefixes {
		out.ServicedPrefixes[i] = normalizePostal(p)
	}
	out.ServiceTypes = make([]string, len(c.ServiceTypes))
	for i, s := range c.ServiceTypes {
		out.ServiceTypes[i] = normalizeServiceType(s)
	}
	out.CommittedSlots = append([]Interval(nil), c.CommittedSlots...)
	out.DeclaredAvailability = DeclaredAvailability{
		Windows: append([]Interval(nil), c.DeclaredAvailability.Windows...),
		Weekly:  append([]WeeklyWindow(nil), c.DeclaredAvailability.Weekly...),
	}
	if c.Coordinates != nil {
		p := *c.Coordinates
		out.Coordinates = &p
	}
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	return out
}

func normalizeServiceType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
