// internal/workers/matching/fetch-candidate-pool/config.go
package fetchcandidatepool

import (
	"time"

	"cleanmatch-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
