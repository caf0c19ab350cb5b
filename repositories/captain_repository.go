package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
)

// CaptainRepository работает с капитанами активностей.
// Create, Update и Delete считают любой 2xx успехом, даже без тела ответа.
type CaptainRepository interface {
	ListAll(ctx context.Context) ([]models.Captaincy, error)
	// FindByEventActivity возвращает пользователя-капитана или nil, если капитана нет.
	FindByEventActivity(ctx context.Context, eventActivityID int) (*models.EnrolledUser, error)
	// FindByUser возвращает пользователя, если он капитан хотя бы одной активности, иначе nil.
	FindByUser(ctx context.Context, userID int) (*models.EnrolledUser, error)
	Create(ctx context.Context, captaincy models.Captaincy) (*models.Captaincy, error)
	Update(ctx context.Context, captaincy models.Captaincy) (*models.Captaincy, error)
	Delete(ctx context.Context, id int) error
}

type remoteCaptainRepository struct {
	api Backend
}

func NewRemoteCaptainRepository(api Backend) CaptainRepository {
	return &remoteCaptainRepository{api: api}
}

func (r *remoteCaptainRepository) ListAll(ctx context.Context) ([]models.Captaincy, error) {
	var captaincies []models.Captaincy
	if err := r.api.Get(ctx, "api/CapitanActividades", &captaincies); err != nil {
		if isAbsent(err) {
			return []models.Captaincy{}, nil
		}
		return nil, fmt.Errorf("list captaincies: %w", err)
	}
	return captaincies, nil
}

func (r *remoteCaptainRepository) FindByEventActivity(ctx context.Context, eventActivityID int) (*models.EnrolledUser, error) {
	return r.findUser(ctx, fmt.Sprintf("api/CapitanActividades/FindCapitanEventoActividad/%d", eventActivityID))
}

func (r *remoteCaptainRepository) FindByUser(ctx context.Context, userID int) (*models.EnrolledUser, error) {
	return r.findUser(ctx, fmt.Sprintf("api/CapitanActividades/FindCapitanUsuario/%d", userID))
}

func (r *remoteCaptainRepository) findUser(ctx context.Context, path string) (*models.EnrolledUser, error) {
	var user models.EnrolledUser
	if err := r.api.Get(ctx, path, &user); err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find captain: %w", err)
	}
	if user.UserID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *remoteCaptainRepository) Create(ctx context.Context, captaincy models.Captaincy) (*models.Captaincy, error) {
	created := captaincy
	if err := backend.Settle(r.api.Post(ctx, "api/CapitanActividades/create", captaincy, &created)); err != nil {
		return nil, fmt.Errorf("create captaincy for event activity %d: %w", captaincy.EventActivityID, err)
	}
	return &created, nil
}

func (r *remoteCaptainRepository) Update(ctx context.Context, captaincy models.Captaincy) (*models.Captaincy, error) {
	updated := captaincy
	if err := backend.Settle(r.api.Put(ctx, "api/CapitanActividades/update", captaincy, &updated)); err != nil {
		return nil, fmt.Errorf("update captaincy %d: %w", captaincy.ID, err)
	}
	return &updated, nil
}

func (r *remoteCaptainRepository) Delete(ctx context.Context, id int) error {
	if err := backend.Settle(r.api.Delete(ctx, fmt.Sprintf("api/CapitanActividades/%d", id))); err != nil {
		return fmt.Errorf("delete captaincy %d: %w", id, err)
	}
	return nil
}
