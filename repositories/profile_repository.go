package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/models"
)

type ProfileRepository interface {
	// Current возвращает профиль владельца токена из контекста.
	Current(ctx context.Context) (*models.Profile, error)
}

type remoteProfileRepository struct {
	api Backend
}

func NewRemoteProfileRepository(api Backend) ProfileRepository {
	return &remoteProfileRepository{api: api}
}

func (r *remoteProfileRepository) Current(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := r.api.Get(ctx, "api/usuariosdeportes/perfil", &profile); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}
