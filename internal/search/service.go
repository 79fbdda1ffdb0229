package search

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Service is the facade that tries the engine first and falls back to SQL.
type Service struct {
	engine   Engine
	fallback Searcher
	pending  sync.WaitGroup
}

// NewService creates a search service. engine may be nil if Meilisearch is not configured.
func NewService(engine Engine, fallback Searcher) *Service {
	return &Service{engine: engine, fallback: fallback}
}

func (s *Service) EngineHealthy() bool {
	return s.engine != nil && s.engine.Healthy()
}

// Search tries the engine if healthy, otherwise falls back to SQL. Fallback errors are
// returned to the caller.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if s.EngineHealthy() {
		results, total, err := s.engine.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}, nil
		}
		zap.L().Warn("search engine error, falling back to sql", zap.Error(err))
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}, nil
}

// IndexWorkItem indexes a work item in the background.
func (s *Service) IndexWorkItem(record Record) {
	if !s.EngineHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.engine.IndexWorkItems([]Record{record}); err != nil {
			zap.L().Warn("index work item", zap.Int64("work_item_id", record.ID), zap.Error(err))
		}
	}()
}

// DeleteWorkItem removes a work item from the index in the background.
func (s *Service) DeleteWorkItem(id int64) {
	if !s.EngineHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.engine.DeleteWorkItem(id); err != nil {
			zap.L().Warn("delete work item from index", zap.Int64("work_item_id", id), zap.Error(err))
		}
	}()
}

// ReindexAll pushes every record to the engine synchronously. Called at startup.
func (s *Service) ReindexAll(records []Record) {
	if !s.EngineHealthy() || len(records) == 0 {
		return
	}
	if err := s.engine.IndexWorkItems(records); err != nil {
		zap.L().Warn("reindex work items", zap.Int("count", len(records)), zap.Error(err))
		return
	}
	zap.L().Info("reindexed work items", zap.Int("count", len(records)))
}

// Wait blocks until background index writes have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
