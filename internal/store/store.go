package store

import (
	"context"

	"github.com/crunchio/activityd/internal/model"
)

// RequestStats holds aggregate statistics over recorded requests.
type RequestStats struct {
	Total          int            `json:"total"`
	CountBySurface map[string]int `json:"count_by_surface"`
	CountByOutcome map[string]int `json:"count_by_outcome"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for request records.
type Store interface {
	InsertRequest(ctx context.Context, r *model.RequestRecord) error
	GetRequest(ctx context.Context, id string) (*model.RequestRecord, error)
	ListRequests(ctx context.Context, limit, offset int) ([]*model.RequestRecord, int, error)
	GetRequestStats(ctx context.Context) (*RequestStats, error)
	Close() error
}
