package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Dosada05/club-coordinator/hub"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
)

// ResultInput - данные формы результата матча.
type ResultInput struct {
	EventActivityID int `json:"idEventoActividad"`
	HomeTeamID      int `json:"idEquipoLocal"`
	AwayTeamID      int `json:"idEquipoVisitante"`
	HomeScore       int `json:"puntosLocal"`
	AwayScore       int `json:"puntosVisitante"`
}

func (in ResultInput) validate() error {
	switch {
	case in.EventActivityID <= 0:
		return newDialog(DialogWarning, titleMissingInfo, "Selecciona una actividad.", ErrValidationFailed)
	case in.HomeTeamID <= 0 || in.AwayTeamID <= 0:
		return newDialog(DialogWarning, titleMissingInfo, "Selecciona el equipo local y el visitante.", ErrValidationFailed)
	case in.HomeTeamID == in.AwayTeamID:
		return newDialog(DialogWarning, "Equipos iguales", "El equipo local y el visitante deben ser distintos.", ErrValidationFailed)
	case in.HomeScore < 0 || in.AwayScore < 0:
		return newDialog(DialogWarning, "Puntuación no válida", "Los puntos no pueden ser negativos.", ErrValidationFailed)
	}
	return nil
}

type ResultsService struct {
	results  repositories.MatchResultRepository
	captains repositories.CaptainRepository
	cache    *ResultsCache
	notifier Notifier
	logger   *slog.Logger
}

func NewResultsService(
	results repositories.MatchResultRepository,
	captains repositories.CaptainRepository,
	cache *ResultsCache,
	notifier Notifier,
	logger *slog.Logger,
) *ResultsService {
	return &ResultsService{
		results:  results,
		captains: captains,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

// List возвращает результаты из кэша. eventID и activityID == 0 - без фильтра.
func (s *ResultsService) List(ctx context.Context, sess SessionContext, eventID, activityID int) ([]models.ResultView, error) {
	all, err := s.cache.GetAggregatedResults(withSession(ctx, sess))
	if err != nil {
		return nil, err
	}
	return FilterResults(all, eventID, activityID), nil
}

func (s *ResultsService) Groups(ctx context.Context, sess SessionContext, eventID, activityID int) ([]models.EventResultGroup, error) {
	results, err := s.List(ctx, sess, eventID, activityID)
	if err != nil {
		return nil, err
	}
	return GroupByEvent(results), nil
}

func (s *ResultsService) Standings(ctx context.Context, sess SessionContext) ([]models.Standing, error) {
	all, err := s.cache.GetAggregatedResults(withSession(ctx, sess))
	if err != nil {
		return nil, err
	}
	return ComputeStandings(all), nil
}

// IsCaptain - пользователь капитан хотя бы одной активности. Ошибка запроса считается "нет".
func (s *ResultsService) IsCaptain(ctx context.Context, sess SessionContext) bool {
	userID, err := sessionUserID(sess)
	if err != nil {
		return false
	}
	captain, err := s.captains.FindByUser(withSession(ctx, sess), userID)
	if err != nil {
		s.logger.WarnContext(ctx, "captain lookup failed", slog.Int("user_id", userID), slog.Any("error", err))
		return false
	}
	return captain != nil
}

func (s *ResultsService) authorizeMutation(ctx context.Context, sess SessionContext) error {
	if _, err := sessionUserID(sess); err != nil {
		return err
	}
	if SessionPermissions(sess).Has(PermissionRecordResults) || s.IsCaptain(ctx, sess) {
		return nil
	}
	return newDialog(DialogFailure, titleNoPermission, "Solo los capitanes pueden registrar resultados.", ErrCaptainActionForbidden)
}

func (s *ResultsService) Create(ctx context.Context, sess SessionContext, in ResultInput) (*models.MatchResult, error) {
	if err := s.authorizeMutation(ctx, sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx = withSession(ctx, sess)

	created, err := s.results.Create(ctx, models.MatchResult{
		EventActivityID: in.EventActivityID,
		HomeTeamID:      in.HomeTeamID,
		AwayTeamID:      in.AwayTeamID,
		HomeScore:       in.HomeScore,
		AwayScore:       in.AwayScore,
	})
	if err != nil {
		return nil, dialogFromBackend(err, "No se pudo guardar el resultado.")
	}
	s.changed(ctx, "created", created.ID)
	return created, nil
}

func (s *ResultsService) Update(ctx context.Context, sess SessionContext, id int, in ResultInput) (*models.MatchResult, error) {
	if err := s.authorizeMutation(ctx, sess); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: result id must be positive", ErrValidationFailed)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx = withSession(ctx, sess)

	updated, err := s.results.Update(ctx, models.MatchResult{
		ID:              id,
		EventActivityID: in.EventActivityID,
		HomeTeamID:      in.HomeTeamID,
		AwayTeamID:      in.AwayTeamID,
		HomeScore:       in.HomeScore,
		AwayScore:       in.AwayScore,
	})
	if err != nil {
		return nil, dialogFromBackend(err, "No se pudo actualizar el resultado.")
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	s.changed(ctx, "updated", id)
	return updated, nil
}

func (s *ResultsService) Delete(ctx context.Context, sess SessionContext, id int) error {
	if err := s.authorizeMutation(ctx, sess); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: result id must be positive", ErrValidationFailed)
	}
	ctx = withSession(ctx, sess)

	if err := s.results.Delete(ctx, id); err != nil {
		return dialogFromBackend(err, "No se pudo eliminar el resultado.")
	}
	s.changed(ctx, "deleted", id)
	return nil
}

// changed сбрасывает кэш после успешного изменения и оповещает подписчиков.
func (s *ResultsService) changed(ctx context.Context, action string, id int) {
	s.cache.InvalidateCache(ctx)
	s.logger.InfoContext(ctx, "match result changed", slog.String("action", action), slog.Int("result_id", id))
	if s.notifier != nil {
		s.notifier.BroadcastToRoom(hub.RoomResults, hub.Message{
			Type:    hub.MessageResultsUpdated,
			Payload: map[string]interface{}{"action": action, "id": id},
		})
	}
}

// FilterResults оставляет результаты события и активности. 0 - фильтр не задан.
func FilterResults(results []models.ResultView, eventID, activityID int) []models.ResultView {
	filtered := make([]models.ResultView, 0, len(results))
	for _, r := range results {
		if eventID != 0 && r.EventID != eventID {
			continue
		}
		if activityID != 0 && r.ActivityID != activityID {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// GroupByEvent группирует результаты по событию, события по дате, без даты - в конце.
func GroupByEvent(results []models.ResultView) []models.EventResultGroup {
	index := make(map[int]int)
	groups := make([]models.EventResultGroup, 0)
	for _, r := range results {
		i, ok := index[r.EventID]
		if !ok {
			index[r.EventID] = len(groups)
			groups = append(groups, models.EventResultGroup{
				EventID:   r.EventID,
				EventName: r.EventName,
				EventDate: r.EventDate,
				Results:   []models.ResultView{r},
			})
			continue
		}
		groups[i].Results = append(groups[i].Results, r)
		if groups[i].EventDate.IsZero() && !r.EventDate.IsZero() {
			groups[i].EventDate = r.EventDate
		}
	}

	slices.SortStableFunc(groups, func(a, b models.EventResultGroup) int {
		switch {
		case a.EventDate.IsZero() && b.EventDate.IsZero():
			return 0
		case a.EventDate.IsZero():
			return 1
		case b.EventDate.IsZero():
			return -1
		}
		return a.EventDate.Compare(b.EventDate.Time)
	})
	return groups
}

// ComputeStandings суммирует очки по имени команды. Сортировка по очкам, при равенстве по имени.
func ComputeStandings(results []models.ResultView) []models.Standing {
	points := make(map[string]int)
	for _, r := range results {
		points[r.HomeTeam] += r.HomeScore
		points[r.AwayTeam] += r.AwayScore
	}

	standings := make([]models.Standing, 0, len(points))
	for name, p := range points {
		standings = append(standings, models.Standing{TeamName: name, Points: p})
	}
	slices.SortFunc(standings, func(a, b models.Standing) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		return strings.Compare(a.TeamName, b.TeamName)
	})
	return standings
}
