package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Dosada05/club-coordinator/models"
)

func teamsWithIDs(ids ...int) []models.Team {
	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		teams = append(teams, models.Team{ID: id, Name: "Equipo " + string(rune('A'+id%26))})
	}
	return teams
}

func TestGuardUserAlreadyInTeam(t *testing.T) {
	teams := &fakeTeams{
		teams: []models.Team{{ID: 7, Name: "Tigres", EventActivityID: 100}, {ID: 3, Name: "Leones"}},
		members: map[int][]models.TeamMember{
			7: {{TeamID: 7, UserID: 42}},
			3: {{TeamID: 3, UserID: 1}},
		},
	}
	guard := NewMembershipGuard(teams, &fakeEnrollments{}, &fakeEvents{})

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.CanProceed {
		t.Fatal("CanProceed = true, want false")
	}
	if got.Title != TitleAlreadyInTeam || got.TeamIDToSelect != 7 || got.TeamName != "Tigres" {
		t.Errorf("Check() = %+v", got)
	}
	if !errors.Is(got.Reason, ErrUserAlreadyInTeam) {
		t.Errorf("Reason = %v, want ErrUserAlreadyInTeam", got.Reason)
	}
}

func TestGuardIsDeterministicAcrossTeamOrder(t *testing.T) {
	members := map[int][]models.TeamMember{
		4: {{UserID: 42}},
		9: {{UserID: 42}},
	}
	orders := [][]int{{9, 4, 1}, {1, 4, 9}, {4, 9, 1}}
	for _, order := range orders {
		teams := &fakeTeams{teams: teamsWithIDs(order...), members: members}
		guard := NewMembershipGuard(teams, &fakeEnrollments{}, &fakeEvents{})

		for i := 0; i < 2; i++ {
			got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got.TeamIDToSelect != 4 {
				t.Errorf("order %v call %d: TeamIDToSelect = %d, want 4", order, i, got.TeamIDToSelect)
			}
		}
	}
}

func TestGuardStopsAfterBatchWithMember(t *testing.T) {
	teams := &fakeTeams{
		teams:   teamsWithIDs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12),
		members: map[int][]models.TeamMember{3: {{UserID: 42}}},
	}
	guard := NewMembershipGuard(teams, &fakeEnrollments{}, &fakeEvents{})

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.TeamIDToSelect != 3 {
		t.Errorf("TeamIDToSelect = %d, want 3", got.TeamIDToSelect)
	}
	if n := teams.memberCallCount(); n != guardMemberBatchSize {
		t.Errorf("member fetches = %d, want %d", n, guardMemberBatchSize)
	}
}

func TestGuardEnrolledInOtherActivity(t *testing.T) {
	enrollments := &fakeEnrollments{byUser: map[int][]models.Enrollment{
		42: {{UserID: 42, EventActivityID: 501, EventID: 5, ActivityID: 100, ActivityName: "Fútbol"}},
	}}
	guard := NewMembershipGuard(&fakeTeams{}, enrollments, &fakeEvents{})

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 200)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.CanProceed {
		t.Fatal("CanProceed = true, want false")
	}
	if got.Title != TitleEnrolledElsewhere {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Text, "Fútbol") {
		t.Errorf("Text = %q, want activity name", got.Text)
	}
	if !errors.Is(got.Reason, ErrEnrolledInOtherActivity) {
		t.Errorf("Reason = %v", got.Reason)
	}
}

func TestGuardResolvesEnrollmentThroughEventActivities(t *testing.T) {
	enrollments := &fakeEnrollments{byUser: map[int][]models.Enrollment{
		42: {{UserID: 42, EventActivityID: 501}},
	}}
	events := &fakeEvents{perEvent: map[int][]models.EventActivity{
		5: {
			{ID: 501, EventID: 5, ActivityID: 100, ActivityName: "Baloncesto"},
			{ID: 502, EventID: 5, ActivityID: 200, ActivityName: "Voleibol"},
		},
	}}
	guard := NewMembershipGuard(&fakeTeams{}, enrollments, events)

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 200)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.CanProceed || !strings.Contains(got.Text, "Baloncesto") {
		t.Errorf("Check() = %+v", got)
	}
}

func TestGuardSameActivityDoesNotBlock(t *testing.T) {
	enrollments := &fakeEnrollments{byUser: map[int][]models.Enrollment{
		42: {{UserID: 42, EventActivityID: 501, EventID: 5, ActivityID: 100, ActivityName: "Fútbol"}},
	}}
	guard := NewMembershipGuard(&fakeTeams{teams: teamsWithIDs(1)}, enrollments, &fakeEvents{})

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !got.CanProceed {
		t.Errorf("Check() = %+v, want CanProceed", got)
	}
}

func TestGuardOtherEventDoesNotBlock(t *testing.T) {
	enrollments := &fakeEnrollments{byUser: map[int][]models.Enrollment{
		42: {{UserID: 42, EventActivityID: 901, EventID: 9, ActivityID: 100}},
	}}
	guard := NewMembershipGuard(&fakeTeams{}, enrollments, &fakeEvents{})

	got, err := guard.Check(context.Background(), organizer("42"), 42, 5, 200)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !got.CanProceed {
		t.Errorf("Check() = %+v, want CanProceed", got)
	}
}

func TestGuardPropagatesErrors(t *testing.T) {
	t.Run("teams", func(t *testing.T) {
		guard := NewMembershipGuard(&fakeTeams{listErr: errBoom}, &fakeEnrollments{}, &fakeEvents{})
		if _, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want errBoom", err)
		}
	})
	t.Run("members", func(t *testing.T) {
		teams := &fakeTeams{teams: teamsWithIDs(1, 2), membersErr: map[int]error{2: errBoom}}
		guard := NewMembershipGuard(teams, &fakeEnrollments{}, &fakeEvents{})
		if _, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want errBoom", err)
		}
	})
	t.Run("enrollments", func(t *testing.T) {
		guard := NewMembershipGuard(&fakeTeams{}, &fakeEnrollments{byUserErr: errBoom}, &fakeEvents{})
		if _, err := guard.Check(context.Background(), organizer("42"), 42, 5, 100); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want errBoom", err)
		}
	})
}
