package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
)

const (
	titleMissingInfo  = "Falta informacion"
	titleTeamRequired = "Equipo requerido"
	titleError        = "Error"
	titleNoPermission = "Sin permisos"
	titleEnrolled     = "Ya inscrito"
)

// JoinRequest - состояние формы выбора команды на момент отправки.
// Создание имеет приоритет: CreateMode с непустым NewTeamName создаёт команду,
// иначе SelectedTeamID означает вступление в существующую.
type JoinRequest struct {
	EventID         int    `json:"event_id"`
	ActivityID      int    `json:"activity_id"`
	EventActivityID int    `json:"event_activity_id"`
	MinPlayers      int    `json:"min_players"`
	CreateMode      bool   `json:"create_mode"`
	NewTeamName     string `json:"new_team_name"`
	ColorID         int    `json:"color_id"`
	CourseID        int    `json:"course_id"`
	SelectedTeamID  *int   `json:"selected_team_id"`
}

// JoinResult - состояние после успешного вступления/создания и обновления списка.
type JoinResult struct {
	Created        bool                `json:"created"`
	SelectedTeamID int                 `json:"selected_team_id"`
	CreateMode     bool                `json:"create_mode"`
	Teams          []models.Team       `json:"teams"`
	Members        []models.TeamMember `json:"members"`
}

type TeamList struct {
	Teams      []models.Team `json:"teams"`
	CreateMode bool          `json:"create_mode"`
}

type TeamService interface {
	Submit(ctx context.Context, sess SessionContext, req JoinRequest) (*JoinResult, error)
	ListTeams(ctx context.Context, sess SessionContext, activityID, eventID int) (*TeamList, error)
	ListMembers(ctx context.Context, sess SessionContext, teamID int) ([]models.TeamMember, error)
	// CheckMembership запускает проверку участия для текущего пользователя.
	CheckMembership(ctx context.Context, sess SessionContext, eventID, activityID int) (GuardResult, error)
}

type teamService struct {
	teams    repositories.TeamRepository
	profiles repositories.ProfileRepository
	guard    TeamGuard
	logger   *slog.Logger
}

func NewTeamService(
	teams repositories.TeamRepository,
	profiles repositories.ProfileRepository,
	guard TeamGuard,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teams:    teams,
		profiles: profiles,
		guard:    guard,
		logger:   logger,
	}
}

func (s *teamService) Submit(ctx context.Context, sess SessionContext, req JoinRequest) (*JoinResult, error) {
	if !validJoinContext(req) {
		return nil, newDialog(DialogWarning, titleMissingInfo, "Selecciona un evento y una actividad validos.", ErrValidationFailed)
	}

	userID, err := sessionUserID(sess)
	if err != nil {
		return nil, newDialog(DialogFailure, titleError, "No se ha encontrado el usuario. Vuelve a iniciar sesion.", err)
	}

	teamName := strings.TrimSpace(req.NewTeamName)
	creating := req.CreateMode && teamName != ""
	joining := !creating && req.SelectedTeamID != nil

	if !creating && !joining {
		return nil, newDialog(DialogWarning, titleTeamRequired, "Selecciona un equipo o crea uno nuevo para continuar.", ErrTeamRequired)
	}

	ctx = withSession(ctx, sess)

	var targetTeamID int
	if creating {
		targetTeamID, err = s.createTeam(ctx, sess, req, teamName)
		if err != nil {
			return nil, err
		}
	} else {
		targetTeamID = *req.SelectedTeamID
		if targetTeamID <= 0 {
			return nil, newDialog(DialogWarning, titleMissingInfo, "Selecciona un equipo valido.", ErrValidationFailed)
		}

		verdict, err := s.guard.Check(ctx, sess, userID, req.EventID, req.ActivityID)
		if err != nil {
			return nil, newDialog(DialogFailure, titleError, "No se pudo comprobar si ya perteneces a un equipo.",
				fmt.Errorf("%w: %w", ErrBackendFailed, err))
		}
		if !verdict.CanProceed {
			dialog := newDialog(DialogWarning, verdict.Title, verdict.Text, verdict.Reason)
			dialog.TeamIDToSelect = verdict.TeamIDToSelect
			return nil, dialog
		}
	}

	member := models.TeamMember{TeamID: targetTeamID, UserID: userID}
	if err = backend.Settle(s.teams.AddMember(ctx, models.MemberRoleStudent, member)); err != nil {
		s.logger.WarnContext(ctx, "join team failed",
			slog.Int("team_id", targetTeamID),
			slog.Int("user_id", userID),
			slog.Any("error", err),
		)
		return nil, joinFailure(err)
	}

	result := &JoinResult{
		Created:        creating,
		SelectedTeamID: targetTeamID,
	}
	s.refresh(ctx, req, result)
	return result, nil
}

func (s *teamService) createTeam(ctx context.Context, sess SessionContext, req JoinRequest, name string) (int, error) {
	if !SessionPermissions(sess).Has(PermissionCreateTeam) {
		return 0, newDialog(DialogFailure, titleNoPermission, "Solo los capitanes u organizadores pueden crear equipos.", ErrForbiddenOperation)
	}
	if req.ColorID <= 0 {
		return 0, newDialog(DialogWarning, titleMissingInfo, "Selecciona un color para el nuevo equipo.", ErrValidationFailed)
	}

	courseID := req.CourseID
	if courseID <= 0 {
		profile, err := s.profiles.Current(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load profile for course id", slog.Any("error", err))
		} else {
			courseID = profile.CourseID
		}
	}
	if courseID <= 0 {
		return 0, newDialog(DialogFailure, titleMissingInfo,
			"No se pudo obtener el curso del usuario (idCurso). Vuelve a iniciar sesion.", ErrValidationFailed)
	}

	created, err := s.teams.Create(ctx, models.Team{
		EventActivityID: req.EventActivityID,
		Name:            name,
		MinPlayers:      req.MinPlayers,
		ColorID:         req.ColorID,
		CourseID:        courseID,
	})
	if err != nil {
		return 0, newDialog(DialogFailure, titleError, "No se pudo crear el equipo.", fmt.Errorf("%w: %w", ErrBackendFailed, err))
	}
	if created == nil || created.ID <= 0 {
		return 0, newDialog(DialogFailure, titleError, "El equipo se creo, pero no se recibió el idEquipo.", ErrTeamIDMissing)
	}

	s.logger.InfoContext(ctx, "team created",
		slog.Int("team_id", created.ID),
		slog.Int("event_activity_id", req.EventActivityID),
	)
	return created.ID, nil
}

// refresh перечитывает команды активности и участников выбранной команды.
// Ошибки здесь не отменяют уже выполненное вступление.
func (s *teamService) refresh(ctx context.Context, req JoinRequest, result *JoinResult) {
	teams, err := s.teams.ListByActivityEvent(ctx, req.ActivityID, req.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to refresh teams", slog.Any("error", err))
		result.Teams = []models.Team{}
	} else {
		result.Teams = teams
		result.CreateMode = len(teams) == 0
	}

	members, err := s.teams.ListMembers(ctx, result.SelectedTeamID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to refresh team members",
			slog.Int("team_id", result.SelectedTeamID),
			slog.Any("error", err),
		)
		members = []models.TeamMember{}
	}
	result.Members = members
}

func (s *teamService) ListTeams(ctx context.Context, sess SessionContext, activityID, eventID int) (*TeamList, error) {
	if activityID <= 0 || eventID <= 0 {
		return nil, fmt.Errorf("%w: activity and event ids must be positive", ErrValidationFailed)
	}
	teams, err := s.teams.ListByActivityEvent(withSession(ctx, sess), activityID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return &TeamList{Teams: teams, CreateMode: len(teams) == 0}, nil
}

func (s *teamService) ListMembers(ctx context.Context, sess SessionContext, teamID int) ([]models.TeamMember, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("%w: team id must be positive", ErrValidationFailed)
	}
	members, err := s.teams.ListMembers(withSession(ctx, sess), teamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return members, nil
}

func (s *teamService) CheckMembership(ctx context.Context, sess SessionContext, eventID, activityID int) (GuardResult, error) {
	if eventID <= 0 || activityID <= 0 {
		return GuardResult{}, fmt.Errorf("%w: event and activity ids must be positive", ErrValidationFailed)
	}
	userID, err := sessionUserID(sess)
	if err != nil {
		return GuardResult{}, err
	}
	verdict, err := s.guard.Check(ctx, sess, userID, eventID, activityID)
	if err != nil {
		return GuardResult{}, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return verdict, nil
}

func validJoinContext(req JoinRequest) bool {
	return req.EventID > 0 &&
		req.ActivityID > 0 &&
		req.EventActivityID > 0 &&
		req.MinPlayers >= 0
}

// joinFailure переводит ошибку вступления в сообщение по HTTP-статусу.
// Текст от сервера имеет приоритет над типовым.
func joinFailure(err error) *DialogError {
	outcome := backend.Classify(err)

	var text string
	var reason error
	switch outcome.Kind {
	case backend.OutcomeNetwork:
		text, reason = "No se pudo conectar con el servidor. Revisa tu conexión e inténtalo de nuevo.", ErrBackendUnavailable
	case backend.OutcomeUnauthorized:
		text, reason = "Tu sesión ha expirado. Vuelve a iniciar sesión.", ErrAuthenticationFailed
	case backend.OutcomeForbidden:
		text, reason = "No tienes permiso para unirte a este equipo o el equipo está completo.", ErrForbiddenOperation
	case backend.OutcomeNotFound:
		text, reason = "El equipo ya no existe. Actualiza la lista e inténtalo de nuevo.", ErrTeamGone
	case backend.OutcomeConflict:
		text, reason = "El equipo está completo o ya eres miembro de él.", ErrTeamFull
	case backend.OutcomeServer:
		text, reason = "Error del servidor. Inténtalo de nuevo más tarde.", ErrBackendFailed
	default:
		text, reason = "No se pudo completar la solicitud para unirte al equipo.", ErrBackendFailed
	}
	if outcome.Message != "" {
		text = outcome.Message
	}
	return newDialog(DialogFailure, titleError, text, errors.Join(reason, err))
}
