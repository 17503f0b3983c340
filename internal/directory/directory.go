// internal/directory/directory.go
package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cleanmatch-workers/internal/common/config"
	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Scope string

const (
	ScopeArea     Scope = "area"
	ScopeRegion   Scope = "region"
	ScopeNational Scope = "national"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeArea:
		return ScopeArea, nil
	case ScopeRegion:
		return ScopeRegion, nil
	case ScopeNational:
		return ScopeNational, nil
	}
	return "", fmt.Errorf("unknown search scope %q", s)
}

// Broaden returns the next wider scope, or false at national.
func (s Scope) Broaden() (Scope, bool) {
	switch s {
	case ScopeArea:
		return ScopeRegion, true
	case ScopeRegion:
		return ScopeNational, true
	}
	return ScopeNational, false
}

const (
	SourceCache    = "cache"
	SourceSearch   = "search"
	SourceDatabase = "database"
)

type Config struct {
	SearchIndex        string
	MaxPoolSize        int
	CacheTTL           time.Duration
	AreaPrefixLength   int
	RegionPrefixLength int
}

// ConfigFrom takes scope prefix lengths from the matching section so pool
// boundaries line up with the geo tiers the ranker scores.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SearchIndex:        cfg.Directory.SearchIndex,
		MaxPoolSize:        cfg.Directory.MaxPoolSize,
		CacheTTL:           time.Duration(cfg.Directory.CacheTTL) * time.Second,
		AreaPrefixLength:   cfg.Matching.AreaPrefixLength,
		RegionPrefixLength: cfg.Matching.RegionPrefixLength,
	}
}

type PoolQuery struct {
	ServiceType string
	PostalCode  string
	Coordinates *matching.GeoPoint
	Scope       Scope
}

type Pool struct {
	Candidates []matching.CandidateProvider
	Source     string
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Directory reads provider snapshots. Search and cache are optional; the
// database alone can always serve a pool.
type Directory struct {
	db     *sql.DB
	search *elasticsearch.Client
	cache  *redis.Client
	config Config
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, search *elasticsearch.Client, cache *redis.Client, cfg Config, log logger.Logger) *Directory {
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 200
	}
	if cfg.SearchIndex == "" {
		cfg.SearchIndex = "providers"
	}
	return &Directory{
		db:     db,
		search: search,
		cache:  cache,
		config: cfg,
		logger: log,
		now:    time.Now,
	}
}

func (d *Directory) DB() *sql.DB {
	return d.db
}

// FetchPool returns the candidate snapshot for a booking. Cache and search
// failures degrade to the next source; only database failures are returned.
func (d *Directory) FetchPool(ctx context.Context, q PoolQuery) (*Pool, error) {
	q.ServiceType = strings.ToLower(strings.TrimSpace(q.ServiceType))
	q.PostalCode = normalizePostal(q.PostalCode)
	key := cacheKey(q)

	if cached, ok := d.readCache(ctx, key); ok {
		metrics.CandidatePoolSource.WithLabelValues(SourceCache).Inc()
		return &Pool{Candidates: cached, Source: SourceCache}, nil
	}

	var (
		candidates []matching.CandidateProvider
		source     string
		err        error
	)

	if ids, ok := d.searchProviderIDs(ctx, q); ok {
		source = SourceSearch
		candidates, err = d.LoadProviders(ctx, d.db, ids)
	} else {
		source = SourceDatabase
		candidates, err = d.queryPool(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	d.writeCache(ctx, key, candidates)
	metrics.CandidatePoolSource.WithLabelValues(source).Inc()

	d.logger.Info("candidate pool fetched", map[string]interface{}{
		"serviceType": q.ServiceType,
		"scope":       string(q.Scope),
		"source":      source,
		"count":       len(candidates),
	})
	return &Pool{Candidates: candidates, Source: source}, nil
}

func cacheKey(q PoolQuery) string {
	return fmt.Sprintf("pool:%s:%s:%s", q.ServiceType, q.Scope, q.PostalCode)
}

func (d *Directory) readCache(ctx context.Context, key string) ([]matching.CandidateProvider, bool) {
	if d.cache == nil || d.config.CacheTTL <= 0 {
		return nil, false
	}

	raw, err := d.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			d.logger.Warn("pool cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}

	var candidates []matching.CandidateProvider
	if err := json.Unmarshal(raw, &candidates); err != nil {
		d.logger.Warn("pool cache entry corrupt", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	return candidates, true
}

func (d *Directory) writeCache(ctx context.Context, key string, candidates []matching.CandidateProvider) {
	if d.cache == nil || d.config.CacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, raw, d.config.CacheTTL).Err(); err != nil {
		d.logger.Warn("pool cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// scopePrefix is the postal prefix a scope searches under; empty means national.
func (d *Directory) scopePrefix(q PoolQuery) string {
	n := 0
	switch q.Scope {
	case ScopeArea:
		n = d.config.AreaPrefixLength
	case ScopeRegion:
		n = d.config.RegionPrefixLength
	}
	if n <= 0 || q.Scope == ScopeNational {
		return ""
	}
	if len(q.PostalCode) < n {
		return q.PostalCode
	}
	return q.PostalCode[:n]
}

// postalPrefixes lists every prefix of postal a provider could declare as
// a serviced area, shortest first.
func postalPrefixes(postal string, minLen int) []string {
	if minLen < 1 {
		minLen = 1
	}
	var out []string
	for n := minLen; n <= len(postal); n++ {
		out = append(out, postal[:n])
	}
	return out
}

func normalizePostal(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// ErrSerializationFailure marks a transaction Postgres aborted because a
// concurrent writer touched the same rows. Retrying the whole unit is safe.
var ErrSerializationFailure = stderrors.New("serialization failure")

// IsSerializationFailure reports serialization_failure (40001) and
// deadlock_detected (40P01), whether raw or already mapped by this package.
func IsSerializationFailure(err error) bool {
	if stderrors.Is(err, ErrSerializationFailure) {
		return true
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func dbError(query string, err error) error {
	if IsSerializationFailure(err) {
		return fmt.Errorf("%s: %w", query, ErrSerializationFailure)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(query)
	}
	return errors.NewQueryExecutionFailedError(query, err)
}
