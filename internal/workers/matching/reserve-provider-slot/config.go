// internal/workers/matching/reserve-provider-slot/config.go
package reserveproviderslot

import (
	"time"

	"cleanmatch-workers/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	LockTTL     time.Duration
	MaxAttempts int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:     config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		LockTTL:     config.GetDuration(cfg.Reservation.LockTTL),
		MaxAttempts: cfg.Reservation.MaxAttempts,
	}
}
