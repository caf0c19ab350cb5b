package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Dosada05/club-coordinator/batch"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
)

const (
	guardMemberBatchSize = 5

	TitleAlreadyInTeam        = "Ya estás en un equipo"
	TitleEnrolledElsewhere    = "Ya estás inscrito en otra actividad"
	fallbackOtherActivityName = "otra actividad"
)

// GuardResult - решение проверки участия. При CanProceed == false
// Title и Text готовы для показа пользователю, Reason - sentinel-ошибка причины.
type GuardResult struct {
	CanProceed     bool   `json:"can_proceed"`
	Title          string `json:"title,omitempty"`
	Text           string `json:"text,omitempty"`
	TeamIDToSelect int    `json:"team_id_to_select,omitempty"`
	TeamName       string `json:"team_name,omitempty"`
	Reason         error  `json:"-"`
}

// TeamGuard проверяет, может ли пользователь вступить в команду активности события.
type TeamGuard interface {
	Check(ctx context.Context, sess SessionContext, userID, eventID, activityID int) (GuardResult, error)
}

// MembershipGuard выполняет две последовательные проверки:
// пользователь уже состоит в команде этой активности, либо записан на другую активность того же события.
// Проверка не атомарна, окончательное решение остаётся за бэкендом.
type MembershipGuard struct {
	teams       repositories.TeamRepository
	enrollments repositories.EnrollmentRepository
	events      repositories.EventRepository
}

func NewMembershipGuard(
	teams repositories.TeamRepository,
	enrollments repositories.EnrollmentRepository,
	events repositories.EventRepository,
) *MembershipGuard {
	return &MembershipGuard{
		teams:       teams,
		enrollments: enrollments,
		events:      events,
	}
}

func (g *MembershipGuard) Check(ctx context.Context, sess SessionContext, userID, eventID, activityID int) (GuardResult, error) {
	ctx = withSession(ctx, sess)

	team, err := g.findTeam(ctx, userID, eventID, activityID)
	if err != nil {
		return GuardResult{}, err
	}
	if team != nil {
		return GuardResult{
			CanProceed:     false,
			Title:          TitleAlreadyInTeam,
			Text:           fmt.Sprintf("Ya formas parte del equipo %s en esta actividad.", team.Name),
			TeamIDToSelect: team.ID,
			TeamName:       team.Name,
			Reason:         ErrUserAlreadyInTeam,
		}, nil
	}

	otherActivity, blocked, err := g.findOtherEnrollment(ctx, userID, eventID, activityID)
	if err != nil {
		return GuardResult{}, err
	}
	if blocked {
		return GuardResult{
			CanProceed: false,
			Title:      TitleEnrolledElsewhere,
			Text: fmt.Sprintf("Ya estás inscrito en %s en este evento. Solo puedes participar en una actividad por evento.",
				otherActivity),
			Reason: ErrEnrolledInOtherActivity,
		}, nil
	}

	return GuardResult{CanProceed: true}, nil
}

// findTeam обходит команды в порядке возрастания id пачками по 5
// и возвращает первую команду, где есть пользователь.
func (g *MembershipGuard) findTeam(ctx context.Context, userID, eventID, activityID int) (*models.Team, error) {
	teams, err := g.teams.ListByActivityEvent(ctx, activityID, eventID)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	slices.SortFunc(teams, func(a, b models.Team) int { return a.ID - b.ID })

	var (
		mu      sync.Mutex
		members = make(map[int][]models.TeamMember, len(teams))
		found   *models.Team
		runErr  error
	)

	runner := batch.Runner[models.Team]{
		Size: guardMemberBatchSize,
		OnBatch: func(chunk []models.Team, err error) bool {
			if err != nil {
				runErr = err
				return false
			}
			mu.Lock()
			defer mu.Unlock()
			for i := range chunk {
				if hasMember(members[chunk[i].ID], userID) {
					found = &chunk[i]
					return false
				}
			}
			return true
		},
	}

	err = runner.Run(ctx, teams, func(ctx context.Context, team models.Team) error {
		list, err := g.teams.ListMembers(ctx, team.ID)
		if err != nil {
			return err
		}
		mu.Lock()
		members[team.ID] = list
		mu.Unlock()
		return nil
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	return found, nil
}

// findOtherEnrollment ищет запись пользователя на другую активность того же события.
// Запись на ту же активность не блокирует.
func (g *MembershipGuard) findOtherEnrollment(ctx context.Context, userID, eventID, activityID int) (string, bool, error) {
	enrollments, err := g.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("guard: %w", err)
	}
	if len(enrollments) == 0 {
		return "", false, nil
	}

	var eventActivities map[int]models.EventActivity
	loadEventActivities := func() (map[int]models.EventActivity, error) {
		if eventActivities != nil {
			return eventActivities, nil
		}
		list, err := g.events.ListEventActivities(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		eventActivities = make(map[int]models.EventActivity, len(list))
		for _, ea := range list {
			eventActivities[ea.ID] = ea
		}
		return eventActivities, nil
	}

	for _, e := range enrollments {
		enrolledEvent, enrolledActivity, name := e.EventID, e.ActivityID, e.ActivityName

		if enrolledEvent == 0 || enrolledActivity == 0 || name == "" {
			eas, err := loadEventActivities()
			if err != nil {
				return "", false, err
			}
			if ea, ok := eas[e.EventActivityID]; ok {
				if enrolledEvent == 0 {
					enrolledEvent = ea.EventID
				}
				if enrolledActivity == 0 {
					enrolledActivity = ea.ActivityID
				}
				if name == "" {
					name = ea.ActivityName
				}
			} else if name == "" && enrolledEvent == eventID {
				name = activityNameIn(eas, enrolledActivity)
			}
		}

		if enrolledEvent != eventID || enrolledActivity == 0 || enrolledActivity == activityID {
			continue
		}
		if name == "" {
			name = fallbackOtherActivityName
		}
		return name, true, nil
	}
	return "", false, nil
}

func hasMember(members []models.TeamMember, userID int) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func activityNameIn(eas map[int]models.EventActivity, activityID int) string {
	for _, ea := range eas {
		if ea.ActivityID == activityID {
			return ea.ActivityName
		}
	}
	return ""
}
