// internal/directory/search.go
package directory

import (
	"context"
	"fmt"

	"cleanmatch-workers/internal/common/database"
)

// searchQuery builds the provider index query for a pool. Providers match on
// their own postal prefix or on a serviced prefix covering the request.
func (d *Directory) searchQuery(q PoolQuery) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"serviceTypes": q.ServiceType}},
	}

	if prefix := d.scopePrefix(q); prefix != "" {
		should := []interface{}{
			map[string]interface{}{"prefix": map[string]interface{}{"postalCode": prefix}},
			map[string]interface{}{"terms": map[string]interface{}{
				"servicedPrefixes": postalPrefixes(q.PostalCode, len(prefix)),
			}},
		}
		filters = append(filters, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}

	query := map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{map[string]interface{}{"providerId": "asc"}},
	}

	if q.Coordinates != nil {
		query["sort"] = []interface{}{
			map[string]interface{}{"_geo_distance": map[string]interface{}{
				"location": map[string]interface{}{
					"lat": q.Coordinates.Latitude,
					"lon": q.Coordinates.Longitude,
				},
				"order": "asc",
				"unit":  "mi",
			}},
			map[string]interface{}{"providerId": "asc"},
		}
	}
	return query
}

// searchProviderIDs asks the search index for pool members. ok is false when
// search is not configured or failed, so the caller falls back to SQL.
func (d *Directory) searchProviderIDs(ctx context.Context, q PoolQuery) ([]string, bool) {
	if d.search == nil {
		return nil, false
	}

	res, err := database.Search(ctx, d.search, d.config.SearchIndex, d.searchQuery(q), d.config.MaxPoolSize)
	if err != nil {
		d.logger.Warn("provider search failed, falling back to database", map[string]interface{}{
			"index": d.config.SearchIndex,
			"error": fmt.Sprintf("%v", err),
		})
		return nil, false
	}

	ids := make([]string, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, true
}
