//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanmatch-workers/internal/common/camunda"
	"cleanmatch-workers/internal/common/config"
	"cleanmatch-workers/internal/common/database"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/directory"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"
	"cleanmatch-workers/pkg/registry"

	cpa "cleanmatch-workers/internal/workers/matching/check-provider-availability"
	fcp "cleanmatch-workers/internal/workers/matching/fetch-candidate-pool"
	rc "cleanmatch-workers/internal/workers/matching/rank-candidates"
	rps "cleanmatch-workers/internal/workers/matching/reserve-provider-slot"
	vbr "cleanmatch-workers/internal/workers/matching/validate-booking-request"
)

const (
	migrationPath = "../../migrations/001_provider_directory.sql"
	registryPath  = "../../configs/activity-registry.json"
)

type env struct {
	cfg   *config.Config
	db    *database.PostgresClient
	redis *database.RedisClient
	dir   *directory.Directory
}

func setup(t *testing.T) *env {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	if url := os.Getenv("E2E_ELASTICSEARCH_URL"); url != "" {
		cfg.Database.Elasticsearch.URL = url
	} else {
		cfg.Database.Elasticsearch.URL = ""
		cfg.Database.Elasticsearch.Addresses = nil
	}
	// pools are re-read after seeding
	cfg.Directory.CacheTTL = 0

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	require.NoError(t, pg.Ping(context.Background()), "PostgreSQL ping failed")
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	require.NoError(t, rdb.Ping(context.Background()), "Redis ping failed")
	t.Cleanup(func() { rdb.Close() })

	migration, err := os.ReadFile(migrationPath)
	require.NoError(t, err)
	_, err = pg.DB.ExecContext(context.Background(), string(migration))
	require.NoError(t, err)

	dirCfg := directory.ConfigFrom(cfg)
	dirCfg.CacheTTL = 0
	dir := directory.New(pg.DB, nil, rdb.Client, dirCfg, logger.NewTestLogger(t))

	return &env{cfg: cfg, db: pg, redis: rdb, dir: dir}
}

// seed inserts three providers under a unique service type so reruns never
// see each other's rows.
func seed(t *testing.T, db *sql.DB, serviceType string, day time.Time) {
	t.Helper()
	ctx := context.Background()

	providers := []struct {
		id, postal string
		rating     interface{}
		rate       float64
		active     bool
	}{
		{serviceType + "-near", "94107", 4.9, 30, true},
		{serviceType + "-far", "10001", 5.0, 25, true},
		{serviceType + "-off", "94107", 5.0, 20, false},
	}
	for _, p := range providers {
		_, err := db.ExecContext(ctx, `INSERT INTO providers
			(id, postal_code, serviced_prefixes, latitude, longitude, rating, experience_months, completed_jobs, hourly_rate, service_types, active)
			VALUES ($1, $2, '{}', NULL, NULL, $3, 36, 80, $4, ARRAY[$5::text], $6)`,
			p.id, p.postal, p.rating, p.rate, serviceType, p.active)
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `INSERT INTO provider_availability (provider_id, kind, starts_at, ends_at)
			VALUES ($1, 'interval', $2, $3)`, p.id, day, day.Add(10*time.Hour))
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		for _, p := range providers {
			_, _ = db.ExecContext(context.Background(), `DELETE FROM providers WHERE id = $1`, p.id)
		}
	})
}

func TestMatchingPipeline(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	serviceType := "e2e-" + uuid.NewString()[:8]
	day := time.Now().UTC().Add(72 * time.Hour).Truncate(24 * time.Hour).Add(8 * time.Hour)
	seed(t, e.db.DB, serviceType, day)

	reg, err := registry.LoadRegistry(registryPath)
	require.NoError(t, err)
	schema, err := reg.InputSchema(vbr.TaskType)
	require.NoError(t, err)

	engine, err := matching.NewEngine(e.cfg.Matching)
	require.NoError(t, err)

	// 1. validate
	validator := vbr.NewHandler(&vbr.Config{Timeout: 5 * time.Second}, schema, engine.Validator(), log)
	validated, err := validator.Execute(ctx, &vbr.Input{BookingRequest: models.BookingRequest{
		RequestID:   "req-" + uuid.NewString(),
		ServiceType: serviceType,
		Location:    matching.Location{PostalCode: "94107"},
		TimeWindow:  models.TimeWindow{Start: day.Add(time.Hour), DurationMinutes: 120},
	}})
	require.NoError(t, err)
	request := validated.BookingRequest

	// 2. fetch the national pool so the distant provider is included
	fetcher := fcp.NewHandler(&fcp.Config{Timeout: 10 * time.Second}, e.dir, log)
	pool, err := fetcher.Execute(ctx, &fcp.Input{BookingRequest: request, SearchScope: "national"})
	require.NoError(t, err)
	assert.Equal(t, directory.SourceDatabase, pool.Source)
	assert.Equal(t, 3, pool.CandidateCount)

	// 3. rank
	ranker := rc.NewHandler(&rc.Config{Timeout: 5 * time.Second, BroadenScope: true}, engine, log)
	ranked, err := ranker.Execute(ctx, &rc.Input{BookingRequest: request, Candidates: pool.Candidates, SearchScope: "national"})
	require.NoError(t, err)
	require.True(t, ranked.HasMatches)
	require.Len(t, ranked.Matches, 2)
	assert.Equal(t, serviceType+"-near", ranked.TopPick.ProviderID)
	assert.Equal(t, 1, ranked.Exclusions.Inactive)

	// 4. reserve
	reserver := rps.NewHandler(&rps.Config{Timeout: 10 * time.Second, LockTTL: 5 * time.Second, MaxAttempts: 5},
		e.dir, e.redis.Client, log)
	reservation, err := reserver.Execute(ctx, &rps.Input{BookingRequest: request, Matches: ranked.Matches})
	require.NoError(t, err)
	require.True(t, reservation.Reserved)
	assert.Equal(t, serviceType+"-near", reservation.ProviderID)

	var status string
	require.NoError(t, e.db.DB.QueryRowContext(ctx,
		`SELECT status FROM provider_slots WHERE id = $1`, reservation.ReservationID).Scan(&status))
	assert.Equal(t, "committed", status)

	// 5. the same window again falls through to the next provider
	second, err := reserver.Execute(ctx, &rps.Input{BookingRequest: request, Matches: ranked.Matches})
	require.NoError(t, err)
	require.True(t, second.Reserved)
	assert.Equal(t, serviceType+"-far", second.ProviderID)
	assert.Equal(t, 1, second.Conflicts)

	// 6. point lookups agree with the committed slots
	checker := cpa.NewHandler(&cpa.Config{Timeout: 5 * time.Second}, e.dir, log)
	check, err := checker.Execute(ctx, &cpa.Input{ProviderID: serviceType + "-near", TimeWindow: request.TimeWindow})
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, cpa.ReasonUnavailable, check.Reason)
}

func TestZeebeConnectivity(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Camunda.BrokerAddress = "localhost:26500"

	client, err := camunda.NewClientWithConfig(context.Background(), camunda.ConfigFrom(cfg.Camunda))
	require.NoError(t, err, "Zeebe gateway unreachable")
	defer client.Close()

	assert.NoError(t, client.HealthCheck(context.Background()))
}
