package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// hexIDPattern validates the one shape of source_id the keyed-search path
// is allowed to interpolate directly into SQL text (§9 Open Question).
var hexIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

const defaultSearchLimit = 50

// baseWhere applies the common predicates every search mode shares:
// source_id (via a subquery against artifact, since fragment does not
// carry source_id directly), generation_id, external_id and
// aggregation_level.
func (c *gormCatalog) baseWhere(query *gorm.DB, params SearchParams, generationID int64) *gorm.DB {
	artifactFilter := "fragment.artifact_id IN (SELECT id FROM artifact WHERE source_id = ?"
	args := []any{params.SourceID.String()}
	if params.ExternalID != "" {
		artifactFilter += " AND external_id = ?"
		args = append(args, params.ExternalID)
	}
	artifactFilter += ")"
	query = query.Where(artifactFilter, args...)

	if generationID > 0 {
		query = query.Where("fragment.generation_id = ?", generationID)
	}
	if params.AggregationLevel != "" {
		query = query.Where("fragment.type = ?", params.AggregationLevel)
	}
	return query
}

// Search executes one of the four fragment-search modes (§4.1): text,
// n-gram, JSON-path, keyed. Text, n-gram and JSON-path share baseWhere;
// keyed applies the same common predicates itself (with source_id as
// literal SQL). Each then adds one mode-specific predicate.
func (c *gormCatalog) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	if params.SourceID.IsZero() {
		return SearchResult{}, models.Validation("source_id", "is required")
	}

	generationID := params.GenerationID
	if generationID == 0 {
		latest, err := c.generationRepo.LatestGenerationID(ctx, params.SourceID)
		if err != nil {
			return SearchResult{}, err
		}
		generationID = latest
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := c.db.WithContext(ctx).Model(&models.Fragment{})

	switch params.Mode {
	case SearchText, SearchNgram:
		if params.Query == "" {
			return SearchResult{}, models.Validation("query", "is required")
		}
		query = c.baseWhere(query, params, generationID)
		// A real n-gram index (Postgres pg_trgm, SQLite FTS5) would back
		// SearchNgram with its own operator; a LIKE scan is the portable
		// fallback across all three drivers since the schema's index on
		// text_content (migrations/registry.go) is a plain btree, not a
		// native full-text structure.
		query = query.Where("fragment.text_content LIKE ?", "%"+params.Query+"%")

	case SearchJSON:
		if params.JSONPath == "" || len(params.JSONValues) == 0 {
			return SearchResult{}, models.Validation("json_path", "json_path and at least one value are required")
		}
		query = c.baseWhere(query, params, generationID)
		likeClauses := make([]string, 0, len(params.JSONValues))
		args := make([]any, 0, len(params.JSONValues))
		for _, v := range params.JSONValues {
			likeClauses = append(likeClauses, "fragment.json_content LIKE ?")
			args = append(args, fmt.Sprintf(`%%"%s":"%s"%%`, params.JSONPath, v))
		}
		whereClause := likeClauses[0]
		for _, clause := range likeClauses[1:] {
			whereClause += " OR " + clause
		}
		query = query.Where(whereClause, args...)

	case SearchKeyed:
		if len(params.Keys) == 0 {
			return SearchResult{}, models.Validation("keys", "at least one key is required")
		}
		if !hexIDPattern.MatchString(params.SourceID.String()) {
			return SearchResult{}, models.Validation("source_id", "must be 32 lowercase hex characters")
		}
		// Every term must match a FragmentKey with that exact key name
		// and a value in that term's value set; OR the terms together,
		// then require (in the HAVING clause below) that a winning
		// fragment matched every distinct key name requested. This
		// mirrors calc_search_fragments_key_where_clause in the original
		// engine: a flat "key IN (...)" can't express "key=ada_code AND
		// value=12345 AND key=dr_code AND value=XY99" because IN alone
		// has no way to pair each key name with its own value set.
		orClauses := make([]string, 0, len(params.Keys))
		args := make([]any, 0, len(params.Keys)*2)
		for _, term := range params.Keys {
			if term.Key == "" || len(term.Values) == 0 {
				return SearchResult{}, models.Validation("keys", "each key term requires a non-empty key and at least one value")
			}
			orClauses = append(orClauses, "(fragment_key.key = ? AND fragment_key.value IN ?)")
			args = append(args, term.Key, term.Values)
		}
		// The only query in the catalog that interpolates source_id as
		// literal SQL text rather than a placeholder: the HAVING-clause
		// shape this predicate needs doesn't carry a parameterized
		// artifact-subquery cleanly through every supported driver's
		// planner, per the design's documented workaround. The regex
		// check above is what makes this safe.
		query = query.Joins("JOIN fragment_key ON fragment_key.fragment_id = fragment.fragment_id AND fragment_key.artifact_id = fragment.artifact_id").
			Where(fmt.Sprintf("fragment.artifact_id IN (SELECT id FROM artifact WHERE source_id = '%s')", params.SourceID.String()))
		if params.ExternalID != "" {
			query = query.Where("fragment.artifact_id IN (SELECT id FROM artifact WHERE external_id = ?)", params.ExternalID)
		}
		if generationID > 0 {
			query = query.Where("fragment.generation_id = ?", generationID)
		}
		if params.AggregationLevel != "" {
			query = query.Where("fragment.type = ?", params.AggregationLevel)
		}
		query = query.Where(strings.Join(orClauses, " OR "), args...).
			Group("fragment.id").
			Having("COUNT(DISTINCT fragment_key.key) = ?", len(params.Keys))

	default:
		return SearchResult{}, models.Validation("mode", "unknown search mode")
	}

	var records []models.Fragment
	if err := query.Order("fragment.id ASC").Offset(params.Offset).Limit(limit + 1).Find(&records).Error; err != nil {
		return SearchResult{}, fmt.Errorf("searching fragments: %w", err)
	}

	var nextOffset *int
	if len(records) > limit {
		records = records[:limit]
		next := params.Offset + limit
		nextOffset = &next
	}

	return SearchResult{Records: records, NextOffset: nextOffset}, nil
}
