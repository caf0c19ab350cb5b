package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
)

type TeamRepository interface {
	// ListByActivityEvent возвращает команды активности в рамках события.
	ListByActivityEvent(ctx context.Context, activityID, eventID int) ([]models.Team, error)
	ListAll(ctx context.Context) ([]models.Team, error)
	// Create создаёт команду. Если бэкенд не вернул тело, ID результата будет 0.
	Create(ctx context.Context, team models.Team) (*models.Team, error)
	ListMembers(ctx context.Context, teamID int) ([]models.TeamMember, error)
	AddMember(ctx context.Context, role models.MemberRole, member models.TeamMember) error
}

type remoteTeamRepository struct {
	api Backend
}

func NewRemoteTeamRepository(api Backend) TeamRepository {
	return &remoteTeamRepository{api: api}
}

func (r *remoteTeamRepository) ListByActivityEvent(ctx context.Context, activityID, eventID int) ([]models.Team, error) {
	var teams []models.Team
	path := fmt.Sprintf("api/Equipos/EquiposActividadEvento/%d/%d", activityID, eventID)
	if err := r.api.Get(ctx, path, &teams); err != nil {
		if isAbsent(err) {
			return []models.Team{}, nil
		}
		return nil, fmt.Errorf("list teams of activity %d event %d: %w", activityID, eventID, err)
	}
	return teams, nil
}

func (r *remoteTeamRepository) ListAll(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := r.api.Get(ctx, "api/Equipos", &teams); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (r *remoteTeamRepository) Create(ctx context.Context, team models.Team) (*models.Team, error) {
	var created models.Team
	if err := backend.Settle(r.api.Post(ctx, "api/equipos/create", team, &created)); err != nil {
		return nil, fmt.Errorf("create team %q: %w", team.Name, err)
	}
	return &created, nil
}

func (r *remoteTeamRepository) ListMembers(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	var members []models.TeamMember
	path := fmt.Sprintf("api/MiembroEquipos/MiembrosEquipo/%d", teamID)
	if err := r.api.Get(ctx, path, &members); err != nil {
		if isAbsent(err) {
			return []models.TeamMember{}, nil
		}
		return nil, fmt.Errorf("list members of team %d: %w", teamID, err)
	}
	return members, nil
}

// AddMember не гасит ошибки: статус нужен вызывающему для текста сообщения.
func (r *remoteTeamRepository) AddMember(ctx context.Context, role models.MemberRole, member models.TeamMember) error {
	path := fmt.Sprintf("api/MiembroEquipos/create/%s", role)
	if err := r.api.Post(ctx, path, member, nil); err != nil {
		return fmt.Errorf("add user %d to team %d: %w", member.UserID, member.TeamID, err)
	}
	return nil
}
