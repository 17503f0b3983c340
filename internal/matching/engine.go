// Package matching ranks cleaning providers for a booking request.
//
// Everything here is a pure computation over the snapshot passed in: no I/O,
// no locks, no shared mutable state. An Engine can be shared across
// goroutines. Reserving the chosen provider is the caller's job and must
// re-check IsAvailable inside its own atomic write.
package matching

type Engine struct {
	config    Config
	validator *Validator
	ranker    *MatchRanker
}

func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:    config,
		validator: NewValidator(),
		ranker:    NewMatchRanker(config),
	}, nil
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Validator() *Validator {
	return e.validator
}

// Match validates the request and pool, then ranks the eligible candidates.
// An empty result means nobody was available and is not an error.
func (e *Engine) Match(request BookingRequest, pool []CandidateProvider) (RankedMatchResult, error) {
	input, err := e.validator.Validate(request, pool)
	if err != nil {
		return RankedMatchResult{}, err
	}
	return e.ranker.Rank(input), nil
}
