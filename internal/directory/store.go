// internal/directory/store.go
package directory

import (
	"context"
	"database/sql"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/matching"

	"github.com/lib/pq"
)

const providerColumns = `id, postal_code, serviced_prefixes, latitude, longitude, rating,
	experience_months, completed_jobs, hourly_rate, service_types, active`

const (
	queryPoolSQL = `SELECT ` + providerColumns + `
	FROM providers
	WHERE $1 = ANY(service_types)
	  AND ($2 = '' OR postal_code LIKE $2 || '%' OR serviced_prefixes && $3)
	ORDER BY id
	LIMIT $4`

	queryProvidersByIDSQL = `SELECT ` + providerColumns + `
	FROM providers
	WHERE id = ANY($1)
	ORDER BY id`

	lockProviderSQL = `SELECT ` + providerColumns + `
	FROM providers
	WHERE id = $1
	FOR UPDATE`

	queryAvailabilitySQL = `SELECT provider_id, kind, starts_at, ends_at, weekday, start_minute, end_minute, time_zone
	FROM provider_availability
	WHERE provider_id = ANY($1)
	ORDER BY provider_id, kind, starts_at, weekday, start_minute`

	querySlotsSQL = `SELECT provider_id, starts_at, ends_at
	FROM provider_slots
	WHERE provider_id = ANY($1) AND status = 'committed' AND ends_at > $2
	ORDER BY provider_id, starts_at`

	insertSlotSQL = `INSERT INTO provider_slots (id, provider_id, request_id, starts_at, ends_at, status, created_at)
	VALUES ($1, $2, $3, $4, $5, 'committed', $6)`
)

const (
	kindInterval = "interval"
	kindWeekly   = "weekly"
)

// Slot is a committed booking on a provider's calendar.
type Slot struct {
	ID         string
	ProviderID string
	RequestID  string
	Interval   matching.Interval
}

func (d *Directory) queryPool(ctx context.Context, q PoolQuery) ([]matching.CandidateProvider, error) {
	prefix := d.scopePrefix(q)
	prefixes := []string{}
	if prefix != "" {
		prefixes = postalPrefixes(q.PostalCode, len(prefix))
	}

	rows, err := d.db.QueryContext(ctx, queryPoolSQL, q.ServiceType, prefix, pq.Array(prefixes), d.config.MaxPoolSize)
	if err != nil {
		return nil, dbError("query candidate pool", err)
	}
	providers, err := scanProviders(rows)
	if err != nil {
		return nil, dbError("scan candidate pool", err)
	}
	if err := d.hydrate(ctx, d.db, providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// LoadProviders reads full snapshots for ids, ordered by provider id.
func (d *Directory) LoadProviders(ctx context.Context, q Queryer, ids []string) ([]matching.CandidateProvider, error) {
	if len(ids) == 0 {
		return []matching.CandidateProvider{}, nil
	}

	rows, err := q.QueryContext(ctx, queryProvidersByIDSQL, pq.Array(ids))
	if err != nil {
		return nil, dbError("query providers", err)
	}
	providers, err := scanProviders(rows)
	if err != nil {
		return nil, dbError("scan providers", err)
	}
	if err := d.hydrate(ctx, q, providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func (d *Directory) GetProvider(ctx context.Context, id string) (matching.CandidateProvider, error) {
	providers, err := d.LoadProviders(ctx, d.db, []string{id})
	if err != nil {
		return matching.CandidateProvider{}, err
	}
	if len(providers) == 0 {
		return matching.CandidateProvider{}, errors.NewProviderNotFoundError(id)
	}
	return providers[0], nil
}

// LockProvider row-locks the provider for the rest of tx and returns a fresh
// snapshot, committed slots included.
func (d *Directory) LockProvider(ctx context.Context, tx *sql.Tx, id string) (matching.CandidateProvider, error) {
	rows, err := tx.QueryContext(ctx, lockProviderSQL, id)
	if err != nil {
		return matching.CandidateProvider{}, dbError("lock provider", err)
	}
	providers, err := scanProviders(rows)
	if err != nil {
		return matching.CandidateProvider{}, dbError("scan locked provider", err)
	}
	if len(providers) == 0 {
		return matching.CandidateProvider{}, errors.NewProviderNotFoundError(id)
	}
	if err := d.hydrate(ctx, tx, providers); err != nil {
		return matching.CandidateProvider{}, err
	}
	return providers[0], nil
}

func (d *Directory) InsertSlot(ctx context.Context, tx *sql.Tx, slot Slot) error {
	_, err := tx.ExecContext(ctx, insertSlotSQL,
		slot.ID, slot.ProviderID, slot.RequestID, slot.Interval.Start, slot.Interval.End, d.now().UTC())
	if err != nil {
		return dbError("insert slot", err)
	}
	return nil
}

func scanProviders(rows *sql.Rows) ([]matching.CandidateProvider, error) {
	defer rows.Close()

	providers := []matching.CandidateProvider{}
	for rows.Next() {
		var (
			c                 matching.CandidateProvider
			lat, lon, rating  sql.NullFloat64
			prefixes, service []string
		)
		if err := rows.Scan(
			&c.ProviderID, &c.PostalCode, pq.Array(&prefixes),
			&lat, &lon, &rating,
			&c.ExperienceMonths, &c.CompletedJobCount, &c.HourlyRate,
			pq.Array(&service), &c.Active,
		); err != nil {
			return nil, err
		}

		c.ServicedPrefixes = prefixes
		c.ServiceTypes = service
		if lat.Valid && lon.Valid {
			c.Coordinates = &matching.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		if rating.Valid {
			r := rating.Float64
			c.Rating = &r
		}
		providers = append(providers, c)
	}
	return providers, rows.Err()
}

// hydrate attaches declared availability and committed slots. Rows that
// cannot be interpreted are kept as empty intervals so the engine treats
// the provider as malformed rather than free.
func (d *Directory) hydrate(ctx context.Context, q Queryer, providers []matching.CandidateProvider) error {
	if len(providers) == 0 {
		return nil
	}

	index := make(map[string]int, len(providers))
	ids := make([]string, 0, len(providers))
	for i, p := range providers {
		index[p.ProviderID] = i
		ids = append(ids, p.ProviderID)
	}

	if err := d.loadAvailability(ctx, q, ids, index, providers); err != nil {
		return err
	}
	return d.loadSlots(ctx, q, ids, index, providers)
}

func (d *Directory) loadAvailability(ctx context.Context, q Queryer, ids []string, index map[string]int, providers []matching.CandidateProvider) error {
	rows, err := q.QueryContext(ctx, queryAvailabilitySQL, pq.Array(ids))
	if err != nil {
		return dbError("query availability", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			providerID, kind  string
			startsAt, endsAt  sql.NullTime
			weekday, from, to sql.NullInt64
			timeZone          sql.NullString
		)
		if err := rows.Scan(&providerID, &kind, &startsAt, &endsAt, &weekday, &from, &to, &timeZone); err != nil {
			return dbError("scan availability", err)
		}
		i, ok := index[providerID]
		if !ok {
			continue
		}

		declared := &providers[i].DeclaredAvailability
		switch kind {
		case kindWeekly:
			w := matching.WeeklyWindow{Weekday: -1, TimeZone: timeZone.String}
			if weekday.Valid {
				w.Weekday = time.Weekday(weekday.Int64)
			}
			if from.Valid && to.Valid {
				w.StartMinute, w.EndMinute = int(from.Int64), int(to.Int64)
			}
			declared.Weekly = append(declared.Weekly, w)
		case kindInterval:
			declared.Windows = append(declared.Windows, matching.Interval{Start: startsAt.Time, End: endsAt.Time})
		default:
			declared.Windows = append(declared.Windows, matching.Interval{})
		}
	}
	if err := rows.Err(); err != nil {
		return dbError("scan availability", err)
	}
	return nil
}

func (d *Directory) loadSlots(ctx context.Context, q Queryer, ids []string, index map[string]int, providers []matching.CandidateProvider) error {
	rows, err := q.QueryContext(ctx, querySlotsSQL, pq.Array(ids), d.now().UTC())
	if err != nil {
		return dbError("query slots", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			providerID       string
			startsAt, endsAt time.Time
		)
		if err := rows.Scan(&providerID, &startsAt, &endsAt); err != nil {
			return dbError("scan slots", err)
		}
		if i, ok := index[providerID]; ok {
			providers[i].CommittedSlots = append(providers[i].CommittedSlots, matching.Interval{Start: startsAt, End: endsAt})
		}
	}
	if err := rows.Err(); err != nil {
		return dbError("scan slots", err)
	}
	return nil
}
