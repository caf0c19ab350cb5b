package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/batch"
	"github.com/Dosada05/club-coordinator/hub"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	playerCountBatchSize  = 5
	playerCountBatchPause = 50 * time.Millisecond
	captainBatchSize      = 3
	captainBatchPause     = 30 * time.Millisecond
	eventActivitiesLimit  = 8
)

// Notifier рассылает события подписчикам (реализуется *hub.Hub).
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

// ConfirmFunc спрашивает подтверждение замены текущего капитана.
type ConfirmFunc func(ctx context.Context, current, candidate models.EnrolledUser) bool

// Confirmed - ConfirmFunc для запросов, где подтверждение уже получено от пользователя.
func Confirmed(confirmed bool) ConfirmFunc {
	return func(context.Context, models.EnrolledUser, models.EnrolledUser) bool { return confirmed }
}

type AssignStatus string

const (
	AssignAssigned  AssignStatus = "assigned"
	AssignUnchanged AssignStatus = "unchanged"
	AssignRemoved   AssignStatus = "removed"
)

type AssignOutcome struct {
	Status          AssignStatus         `json:"status"`
	Kind            DialogKind           `json:"kind"`
	Title           string               `json:"title"`
	Text            string               `json:"text"`
	EventActivityID int                  `json:"event_activity_id"`
	Captain         *models.EnrolledUser `json:"captain,omitempty"`
	CaptaincyID     int                  `json:"captaincy_id,omitempty"`
	Previous        *models.EnrolledUser `json:"previous,omitempty"`
}

type CaptainService struct {
	events      repositories.EventRepository
	enrollments repositories.EnrollmentRepository
	captains    repositories.CaptainRepository
	audit       repositories.AssignmentRepository
	notifier    Notifier
	board       *CaptainBoard
	pick        func(n int) int
	logger      *slog.Logger

	playerBatch  batchSpec
	captainBatch batchSpec

	background sync.WaitGroup
}

type batchSpec struct {
	size  int
	pause time.Duration
}

// NewCaptainService создаёт координатор капитанов. audit и notifier могут быть nil.
func NewCaptainService(
	events repositories.EventRepository,
	enrollments repositories.EnrollmentRepository,
	captains repositories.CaptainRepository,
	audit repositories.AssignmentRepository,
	notifier Notifier,
	logger *slog.Logger,
) *CaptainService {
	return &CaptainService{
		events:       events,
		enrollments:  enrollments,
		captains:     captains,
		audit:        audit,
		notifier:     notifier,
		board:        NewCaptainBoard(),
		pick:         rand.IntN,
		logger:       logger,
		playerBatch:  batchSpec{size: playerCountBatchSize, pause: playerCountBatchPause},
		captainBatch: batchSpec{size: captainBatchSize, pause: captainBatchPause},
	}
}

func (s *CaptainService) Board() *CaptainBoard {
	return s.board
}

// Wait ждёт окончания фоновых загрузок и обновлений.
func (s *CaptainService) Wait() {
	s.background.Wait()
}

func (s *CaptainService) authorize(sess SessionContext) (int, error) {
	userID, err := sessionUserID(sess)
	if err != nil {
		return 0, err
	}
	if !SessionPermissions(sess).Has(PermissionManageCaptains) {
		return 0, newDialog(DialogFailure, titleNoPermission, "No tienes permisos para gestionar capitanes.", ErrForbiddenOperation)
	}
	return userID, nil
}

// LoadBoard загружает активности всех событий и сразу возвращает их,
// число игроков и капитаны догружаются в фоне пачками.
func (s *CaptainService) LoadBoard(ctx context.Context, sess SessionContext) (BoardSnapshot, error) {
	if _, err := s.authorize(sess); err != nil {
		return BoardSnapshot{}, err
	}
	ctx = withSession(ctx, sess)

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return BoardSnapshot{}, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}

	perEvent := make([][]models.EventActivity, len(events))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(eventActivitiesLimit)
	for i, event := range events {
		g.Go(func() error {
			list, err := s.events.ListEventActivities(gCtx, event.ID)
			if err != nil {
				return err
			}
			perEvent[i] = list
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return BoardSnapshot{}, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}

	var activities []models.EventActivity
	for _, list := range perEvent {
		activities = append(activities, list...)
	}

	gen := s.board.Reset(activities)
	s.logger.InfoContext(ctx, "captain board reset",
		slog.Int("events", len(events)),
		slog.Int("activities", len(activities)),
	)

	if len(activities) > 0 {
		bg := context.WithoutCancel(ctx)
		s.background.Add(2)
		go func() {
			defer s.background.Done()
			s.loadPlayerCounts(bg, gen, activities)
		}()
		go func() {
			defer s.background.Done()
			s.loadCaptains(bg, gen, activities)
		}()
	}

	return s.board.Snapshot(), nil
}

// EnsureBoard загружает доску, если она ещё не загружалась.
func (s *CaptainService) EnsureBoard(ctx context.Context, sess SessionContext) (BoardSnapshot, error) {
	if s.board.Loaded() {
		if _, err := s.authorize(sess); err != nil {
			return BoardSnapshot{}, err
		}
		return s.board.Snapshot(), nil
	}
	return s.LoadBoard(ctx, sess)
}

// loadPlayerCounts: пачки по 5 с паузой 50мс. Если пачка упала, её активности получают 0.
func (s *CaptainService) loadPlayerCounts(ctx context.Context, gen uint64, activities []models.EventActivity) {
	var (
		mu     sync.Mutex
		counts = make(map[int]int, s.playerBatch.size)
	)

	runner := batch.Runner[models.EventActivity]{
		Size:  s.playerBatch.size,
		Pause: s.playerBatch.pause,
		OnBatch: func(chunk []models.EventActivity, err error) bool {
			mu.Lock()
			defer mu.Unlock()
			commit := make(map[int]int, len(chunk))
			for _, ea := range chunk {
				if err != nil {
					commit[ea.ID] = 0
				} else {
					commit[ea.ID] = counts[ea.ID]
				}
				delete(counts, ea.ID)
			}
			if err != nil {
				s.logger.WarnContext(ctx, "player count batch failed", slog.Int("activities", len(chunk)), slog.Any("error", err))
			}
			return s.board.SetPlayerCounts(gen, commit)
		},
	}

	_ = runner.Run(ctx, activities, func(ctx context.Context, ea models.EventActivity) error {
		users, err := s.enrollments.ListEnrolledUsers(ctx, ea.EventID, ea.ActivityID)
		if err != nil {
			return err
		}
		mu.Lock()
		counts[ea.ID] = len(users)
		mu.Unlock()
		return nil
	})
}

// loadCaptains берёт все капитанства одним запросом, затем детали капитанов пачками по 3 с паузой 30мс.
func (s *CaptainService) loadCaptains(ctx context.Context, gen uint64, activities []models.EventActivity) {
	all, err := s.captains.ListAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load captaincies", slog.Any("error", err))
		return
	}

	byActivity := make(map[int]models.Captaincy, len(all))
	for _, c := range all {
		byActivity[c.EventActivityID] = c
	}

	ids := make(map[int]int)
	var withCaptain []models.EventActivity
	for _, ea := range activities {
		if c, ok := byActivity[ea.ID]; ok {
			ids[ea.ID] = c.ID
			withCaptain = append(withCaptain, ea)
		}
	}
	if !s.board.SetCaptainIDs(gen, ids) || len(withCaptain) == 0 {
		return
	}

	var (
		mu      sync.Mutex
		details = make(map[int]models.EnrolledUser)
	)
	runner := batch.Runner[models.EventActivity]{
		Size:  s.captainBatch.size,
		Pause: s.captainBatch.pause,
		OnBatch: func(chunk []models.EventActivity, err error) bool {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "captain details batch failed", slog.Any("error", err))
				clear(details)
				return s.board.IsCurrent(gen)
			}
			ok := s.board.SetCaptainDetails(gen, details)
			clear(details)
			return ok
		},
	}
	_ = runner.Run(ctx, withCaptain, func(ctx context.Context, ea models.EventActivity) error {
		user, err := s.captains.FindByEventActivity(ctx, ea.ID)
		if err != nil {
			return err
		}
		if user != nil {
			mu.Lock()
			details[ea.ID] = *user
			mu.Unlock()
		}
		return nil
	})
}

func (s *CaptainService) Snapshot() BoardSnapshot {
	return s.board.Snapshot()
}

// HasMinimumPlayers - число игроков загружено и не меньше минимума активности.
func (s *CaptainService) HasMinimumPlayers(eventActivityID int) bool {
	return s.board.HasMinimumPlayers(eventActivityID)
}

// prepare проверяет права, наличие активности на доске и минимум игроков.
func (s *CaptainService) prepare(sess SessionContext, eventActivityID int) (int, models.EventActivity, error) {
	actorID, err := s.authorize(sess)
	if err != nil {
		return 0, models.EventActivity{}, err
	}
	ea, ok := s.board.Activity(eventActivityID)
	if !ok {
		return 0, models.EventActivity{}, newDialog(DialogWarning, "Actividad no encontrada",
			"La actividad no está en la lista. Recarga la gestión de capitanes.", ErrNotFound)
	}
	if !s.board.HasMinimumPlayers(ea.ID) {
		count, _ := s.board.PlayerCount(ea.ID)
		return 0, models.EventActivity{}, newDialog(DialogWarning, "Mínimo no alcanzado",
			fmt.Sprintf("Esta actividad necesita %d jugadores. Actualmente tiene %d.", ea.MinPlayers, count),
			ErrMinimumPlayersNotReached)
	}
	return actorID, ea, nil
}

// AssignRandom выбирает капитана случайно среди желающих, а если их нет - среди всех записанных.
func (s *CaptainService) AssignRandom(ctx context.Context, sess SessionContext, eventActivityID int, confirm ConfirmFunc) (*AssignOutcome, error) {
	actorID, ea, err := s.prepare(sess, eventActivityID)
	if err != nil {
		return nil, err
	}
	ctx = withSession(ctx, sess)

	candidates, err := s.enrollments.ListCaptainCandidates(ctx, ea.EventID, ea.ActivityID)
	if err != nil {
		return nil, assignFailure(err)
	}
	if len(candidates) == 0 {
		candidates, err = s.enrollments.ListEnrolledUsers(ctx, ea.EventID, ea.ActivityID)
		if err != nil {
			return nil, assignFailure(err)
		}
	}
	if len(candidates) == 0 {
		return nil, newDialog(DialogFailure, titleError, "No hay usuarios registrados para esta actividad", ErrNoCandidates)
	}

	selected := candidates[s.pick(len(candidates))]
	return s.assign(ctx, actorID, ea, selected, models.AssignmentRandom, confirm)
}

// AssignManual назначает выбранного из списка записанных пользователя.
func (s *CaptainService) AssignManual(ctx context.Context, sess SessionContext, eventActivityID, userID int, confirm ConfirmFunc) (*AssignOutcome, error) {
	actorID, ea, err := s.prepare(sess, eventActivityID)
	if err != nil {
		return nil, err
	}
	ctx = withSession(ctx, sess)

	roster, err := s.roster(ctx, ea)
	if err != nil {
		return nil, err
	}
	for _, user := range roster {
		if user.UserID == userID {
			return s.assign(ctx, actorID, ea, user, models.AssignmentManual, confirm)
		}
	}
	return nil, newDialog(DialogWarning, titleMissingInfo, "El usuario seleccionado no está inscrito en esta actividad.", ErrUserNotEnrolled)
}

// Roster возвращает записанных на активность. Если известно, что их 0, запрос не делается.
func (s *CaptainService) Roster(ctx context.Context, sess SessionContext, eventActivityID int) ([]models.EnrolledUser, error) {
	if _, err := s.authorize(sess); err != nil {
		return nil, err
	}
	ea, ok := s.board.Activity(eventActivityID)
	if !ok {
		return nil, fmt.Errorf("%w: event activity %d is not on the board", ErrNotFound, eventActivityID)
	}
	return s.roster(withSession(ctx, sess), ea)
}

func (s *CaptainService) roster(ctx context.Context, ea models.EventActivity) ([]models.EnrolledUser, error) {
	if count, known := s.board.PlayerCount(ea.ID); known && count == 0 {
		return []models.EnrolledUser{}, nil
	}
	users, err := s.enrollments.ListEnrolledUsers(ctx, ea.EventID, ea.ActivityID)
	if err != nil {
		return nil, newDialog(DialogFailure, "Error al cargar usuarios",
			"No se pudo cargar la lista de usuarios disponibles. Por favor, inténtalo de nuevo más tarde.",
			fmt.Errorf("%w: %w", ErrBackendFailed, err))
	}
	return users, nil
}

func (s *CaptainService) assign(ctx context.Context, actorID int, ea models.EventActivity, candidate models.EnrolledUser, mode models.AssignmentMode, confirm ConfirmFunc) (*AssignOutcome, error) {
	name := candidate.DisplayName()
	current, hasDetails, captaincyID := s.board.Captain(ea.ID)

	if hasDetails && current.UserID == candidate.UserID {
		return &AssignOutcome{
			Status:          AssignUnchanged,
			Kind:            DialogInfo,
			Title:           "Ya es capitán",
			Text:            fmt.Sprintf("%s ya es el capitán de esta actividad.", name),
			EventActivityID: ea.ID,
			Captain:         &candidate,
			CaptaincyID:     captaincyID,
		}, nil
	}

	var previous *models.EnrolledUser
	if captaincyID != 0 {
		if hasDetails {
			p := current
			previous = &p
		}
		if confirm == nil || !confirm(ctx, current, candidate) {
			currentName := "otro usuario"
			if hasDetails {
				currentName = current.DisplayName()
			}
			return nil, newDialog(DialogQuestion, "¿Cambiar capitán?",
				fmt.Sprintf("El capitán actual es %s. ¿Deseas cambiarlo por %s?", currentName, name),
				ErrReplaceNotConfirmed)
		}
	}

	newID, err := s.save(ctx, models.Captaincy{ID: captaincyID, EventActivityID: ea.ID, UserID: candidate.UserID})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save captain",
			slog.Int("event_activity_id", ea.ID),
			slog.Int("user_id", candidate.UserID),
			slog.Any("error", err),
		)
		return nil, assignFailure(err)
	}

	s.board.SetCaptain(ea.ID, candidate, newID)
	_, _, storedID := s.board.Captain(ea.ID)

	var previousID *int
	if previous != nil {
		id := previous.UserID
		previousID = &id
	}
	s.record(ctx, models.CaptainAssignment{
		EventActivityID: ea.ID,
		UserID:          candidate.UserID,
		PreviousUserID:  previousID,
		Mode:            mode,
		AssignedBy:      actorID,
	})

	outcome := &AssignOutcome{
		Status:          AssignAssigned,
		Kind:            DialogSuccess,
		Title:           "¡Capitán Asignado!",
		Text:            fmt.Sprintf("Se ha asignado %s como capitán", name),
		EventActivityID: ea.ID,
		Captain:         &candidate,
		CaptaincyID:     storedID,
		Previous:        previous,
	}
	s.notify(outcome)
	s.refreshInBackground(ctx, ea.ID)
	return outcome, nil
}

// save создаёт или обновляет капитанство. При обновлении id сохраняется,
// если ответ его не содержит; при создании без id в ответе ищется запись этой активности и этого пользователя.
func (s *CaptainService) save(ctx context.Context, captaincy models.Captaincy) (int, error) {
	if captaincy.ID != 0 {
		updated, err := s.captains.Update(ctx, captaincy)
		if err != nil {
			return 0, err
		}
		if updated != nil && updated.ID != 0 {
			return updated.ID, nil
		}
		return captaincy.ID, nil
	}

	created, err := s.captains.Create(ctx, captaincy)
	if err != nil {
		return 0, err
	}
	if created != nil && created.ID != 0 {
		return created.ID, nil
	}

	all, err := s.captains.ListAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "created captaincy without id, lookup failed", slog.Any("error", err))
		return 0, nil
	}
	for _, c := range all {
		if c.EventActivityID == captaincy.EventActivityID && c.UserID == captaincy.UserID {
			return c.ID, nil
		}
	}
	return 0, nil
}

// RemoveCaptain удаляет капитана активности.
func (s *CaptainService) RemoveCaptain(ctx context.Context, sess SessionContext, eventActivityID int) (*AssignOutcome, error) {
	actorID, err := s.authorize(sess)
	if err != nil {
		return nil, err
	}
	ctx = withSession(ctx, sess)

	current, hasDetails, captaincyID := s.board.Captain(eventActivityID)
	if captaincyID == 0 {
		return nil, newDialog(DialogInfo, "Sin capitán", "Esta actividad no tiene capitán asignado.", ErrNoCaptain)
	}

	if err = s.captains.Delete(ctx, captaincyID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete captain",
			slog.Int("event_activity_id", eventActivityID),
			slog.Int("captaincy_id", captaincyID),
			slog.Any("error", err),
		)
		return nil, dialogFromBackend(err, "No se pudo eliminar el capitán")
	}
	s.board.RemoveCaptain(eventActivityID)

	outcome := &AssignOutcome{
		Status:          AssignRemoved,
		Kind:            DialogSuccess,
		Title:           "Capitán Eliminado",
		Text:            "El capitán ha sido eliminado correctamente",
		EventActivityID: eventActivityID,
	}
	if hasDetails {
		outcome.Previous = &current
		s.record(ctx, models.CaptainAssignment{
			EventActivityID: eventActivityID,
			UserID:          current.UserID,
			PreviousUserID:  &current.UserID,
			Mode:            models.AssignmentRemoved,
			AssignedBy:      actorID,
		})
	}
	s.notify(outcome)
	return outcome, nil
}

// RefreshCaptain перечитывает капитана активности с бэкенда.
func (s *CaptainService) RefreshCaptain(ctx context.Context, sess SessionContext, eventActivityID int) (BoardSnapshot, error) {
	if _, err := s.authorize(sess); err != nil {
		return BoardSnapshot{}, err
	}
	if err := s.refreshCaptain(withSession(ctx, sess), eventActivityID); err != nil {
		return BoardSnapshot{}, dialogFromBackend(err, "No se pudo actualizar el capitán")
	}
	return s.board.Snapshot(), nil
}

// refreshCaptain перечитывает капитана. Пустой ответ снимает капитана с доски,
// ошибка оставляет доску как есть. Ответ игнорируется, если капитан успел измениться.
func (s *CaptainService) refreshCaptain(ctx context.Context, eventActivityID int) error {
	rev := s.board.CaptainRevision(eventActivityID)
	user, err := s.captains.FindByEventActivity(ctx, eventActivityID)
	if err != nil {
		s.logger.WarnContext(ctx, "captain refresh failed", slog.Int("event_activity_id", eventActivityID), slog.Any("error", err))
		return err
	}
	s.board.ApplyCaptainRefresh(eventActivityID, rev, user)
	return nil
}

func (s *CaptainService) refreshInBackground(ctx context.Context, eventActivityID int) {
	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		_ = s.refreshCaptain(bg, eventActivityID)
	}()
}

// ListAssignments возвращает журнал назначений.
func (s *CaptainService) ListAssignments(ctx context.Context, sess SessionContext, eventActivityID, limit int) ([]*models.CaptainAssignment, error) {
	if _, err := s.authorize(sess); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, ErrAuditUnavailable
	}
	return s.audit.ListByEventActivity(ctx, nil, eventActivityID, limit)
}

func (s *CaptainService) record(ctx context.Context, assignment models.CaptainAssignment) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, nil, &assignment); err != nil {
		s.logger.WarnContext(ctx, "failed to record captain assignment",
			slog.Int("event_activity_id", assignment.EventActivityID),
			slog.Any("error", err),
		)
	}
}

func (s *CaptainService) notify(outcome *AssignOutcome) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToRoom(hub.RoomCaptains, hub.Message{
		Type:    hub.MessageCaptainUpdated,
		Payload: outcome,
	})
}

func assignFailure(err error) *DialogError {
	return dialogFromBackend(err, "No se pudo asignar el capitán")
}

// dialogFromBackend строит диалог ошибки, предпочитая текст от сервера.
func dialogFromBackend(err error, fallback string) *DialogError {
	text := fallback
	if msg := backend.Classify(err).Message; msg != "" {
		text = msg
	}
	return newDialog(DialogFailure, titleError, text, fmt.Errorf("%w: %w", ErrBackendFailed, err))
}

// PruneAssignments оставляет в журнале по keep последних записей на активность.
func (s *CaptainService) PruneAssignments(ctx context.Context, keep int) (int64, error) {
	if s.audit == nil {
		return 0, ErrAuditUnavailable
	}
	if keep <= 0 {
		return 0, fmt.Errorf("%w: keep must be positive", ErrValidationFailed)
	}
	return s.audit.DeleteOlderThan(ctx, nil, keep)
}
