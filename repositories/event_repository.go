package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/models"
)

type EventRepository interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	// ListEventActivities возвращает активности одного события (с именами).
	ListEventActivities(ctx context.Context, eventID int) ([]models.EventActivity, error)
	// ListAllEventActivities возвращает все связи событие-активность.
	ListAllEventActivities(ctx context.Context) ([]models.EventActivity, error)
}

type remoteEventRepository struct {
	api Backend
}

func NewRemoteEventRepository(api Backend) EventRepository {
	return &remoteEventRepository{api: api}
}

func (r *remoteEventRepository) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.api.Get(ctx, "api/Eventos", &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *remoteEventRepository) ListEventActivities(ctx context.Context, eventID int) ([]models.EventActivity, error) {
	var activities []models.EventActivity
	path := fmt.Sprintf("api/Actividades/ActividadesEvento/%d", eventID)
	if err := r.api.Get(ctx, path, &activities); err != nil {
		if isAbsent(err) {
			return []models.EventActivity{}, nil
		}
		return nil, fmt.Errorf("list activities of event %d: %w", eventID, err)
	}
	return activities, nil
}

func (r *remoteEventRepository) ListAllEventActivities(ctx context.Context) ([]models.EventActivity, error) {
	var relations []models.EventActivity
	if err := r.api.Get(ctx, "api/ActividadesEvento", &relations); err != nil {
		return nil, fmt.Errorf("list event activities: %w", err)
	}
	return relations, nil
}
