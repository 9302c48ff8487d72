package search

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili  *Meili
	pgfts  *PgFTS
	logger zerolog.Logger
}

// NewService creates a search service. Either backend may be nil.
func NewService(meili *Meili, pgfts *PgFTS, logger zerolog.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, logger: logger.With().Str("component", "search").Logger()}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS. Failures
// degrade to an empty response.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliHealthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn().Err(err).Msg("meilisearch error, falling back to pgfts")
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("pgfts search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexFieldValue indexes a field value (fire-and-forget to Meilisearch).
func (s *Service) IndexFieldValue(record FieldValueRecord) {
	if !s.meiliHealthy() {
		return
	}
	go func() {
		if err := s.meili.IndexFieldValue(record); err != nil {
			s.logger.Warn().Err(err).Str("field_value_id", record.ID).Msg("index field value")
		}
	}()
}

// DeleteFieldValue removes a field value from the index (fire-and-forget).
func (s *Service) DeleteFieldValue(id string) {
	if !s.meiliHealthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteFieldValue(id); err != nil {
			s.logger.Warn().Err(err).Str("field_value_id", id).Msg("delete field value")
		}
	}()
}

// ReindexAll pushes records to Meilisearch.
func (s *Service) ReindexAll(records []FieldValueRecord) {
	if !s.meiliHealthy() || len(records) == 0 {
		return
	}
	if err := s.meili.IndexFieldValues(records); err != nil {
		s.logger.Error().Err(err).Msg("reindex field values")
		return
	}
	s.logger.Info().Int("count", len(records)).Msg("reindexed field values")
}

// ReindexAllFromPG reindexes every field value from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.meiliHealthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reindex load failed")
		return
	}
	s.ReindexAll(records)
}

// Close stops the Meilisearch health monitor.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func (s *Service) meiliHealthy() bool {
	return s.meili != nil && s.meili.Healthy()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
