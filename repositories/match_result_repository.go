package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
)

type MatchResultRepository interface {
	ListAll(ctx context.Context) ([]models.MatchResult, error)
	Create(ctx context.Context, result models.MatchResult) (*models.MatchResult, error)
	Update(ctx context.Context, result models.MatchResult) (*models.MatchResult, error)
	Delete(ctx context.Context, id int) error
}

type remoteMatchResultRepository struct {
	api Backend
}

func NewRemoteMatchResultRepository(api Backend) MatchResultRepository {
	return &remoteMatchResultRepository{api: api}
}

func (r *remoteMatchResultRepository) ListAll(ctx context.Context) ([]models.MatchResult, error) {
	var results []models.MatchResult
	if err := r.api.Get(ctx, "api/PartidoResultado", &results); err != nil {
		if isAbsent(err) {
			return []models.MatchResult{}, nil
		}
		return nil, fmt.Errorf("list match results: %w", err)
	}
	return results, nil
}

func (r *remoteMatchResultRepository) Create(ctx context.Context, result models.MatchResult) (*models.MatchResult, error) {
	created := result
	if err := backend.Settle(r.api.Post(ctx, "api/PartidoResultado/create", result, &created)); err != nil {
		return nil, fmt.Errorf("create match result: %w", err)
	}
	return &created, nil
}

func (r *remoteMatchResultRepository) Update(ctx context.Context, result models.MatchResult) (*models.MatchResult, error) {
	updated := result
	if err := backend.Settle(r.api.Put(ctx, "api/PartidoResultado/update", result, &updated)); err != nil {
		return nil, fmt.Errorf("update match result %d: %w", result.ID, err)
	}
	return &updated, nil
}

func (r *remoteMatchResultRepository) Delete(ctx context.Context, id int) error {
	if err := backend.Settle(r.api.Delete(ctx, fmt.Sprintf("api/PartidoResultado/%d", id))); err != nil {
		return fmt.Errorf("delete match result %d: %w", id, err)
	}
	return nil
}
