package store

import (
	"context"
	"errors"

	"uavpath/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// SaveRun stores a completed run; run.ID must be set.
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	// ListRuns pages runs newest first; cursor is the last ID of the previous page.
	ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error)
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
