// internal/workers/matching/notify-no-match/config.go
package notifynomatch

import (
	"time"

	"cleanmatch-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	OpsEmail     string
	SNSEnabled   bool
	OpsTopicARN  string
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		EmailEnabled: n.Email.Enabled && n.Email.FromEmail != "",
		FromEmail:    n.Email.FromEmail,
		OpsEmail:     n.Email.OpsEmail,
		SNSEnabled:   n.SNS.Enabled && n.SNS.OpsTopicARN != "",
		OpsTopicARN:  n.SNS.OpsTopicARN,
	}
}
