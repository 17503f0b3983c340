// internal/common/camunda/worker.go
package camunda

import (
	"sort"
	"sync"
	"time"

	"cleanmatch-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// WorkerGroup opens job workers against one client and closes them together
// on shutdown.
type WorkerGroup struct {
	client  zbc.Client
	logger  *zap.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerGroup(client zbc.Client, logger *zap.Logger) *WorkerGroup {
	return &WorkerGroup{
		client:  client,
		logger:  logger,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless it is disabled in config.
// Starting the same task type twice is a no-op.
func (g *WorkerGroup) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		g.logger.Info("worker disabled", zap.String("taskType", taskType))
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.workers[taskType]; exists {
		return false
	}

	g.workers[taskType] = g.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	g.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return true
}

func (g *WorkerGroup) TaskTypes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	types := make([]string, 0, len(g.workers))
	for t := range g.workers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Close stops polling on every worker and waits for in-flight jobs.
func (g *WorkerGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for taskType, w := range g.workers {
		g.logger.Info("stopping worker", zap.String("taskType", taskType))
		w.Close()
		w.AwaitClose()
	}
	g.workers = make(map[string]worker.JobWorker)
}
