// internal/workers/matching/rank-candidates/config.go
package rankcandidates

import (
	"time"

	"cleanmatch-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// BroadenScope suggests the next search scope when nobody is available.
	BroadenScope bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		BroadenScope: true,
	}
}
