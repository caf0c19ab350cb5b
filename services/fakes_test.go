package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func apiErr(status int) error {
	return &backend.APIError{Status: status}
}

func apiErrMsg(status int, message string) error {
	return &backend.APIError{Status: status, Body: []byte(`{"message":"` + message + `"}`), Message: message}
}

func organizer(id string) Session {
	return Session{UserID: id, Role: models.RoleOrganizer, Token: "tok"}
}

type eaKey struct{ eventID, activityID int }

// inflight считает одновременные вызовы и запоминает максимум.
type inflight struct {
	mu    sync.Mutex
	cur   int
	peak  int
	delay time.Duration
}

func (c *inflight) enter() {
	c.mu.Lock()
	c.cur++
	if c.cur > c.peak {
		c.peak = c.cur
	}
	delay := c.delay
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (c *inflight) leave() {
	c.mu.Lock()
	c.cur--
	c.mu.Unlock()
}

func (c *inflight) maxSeen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// fakeTeams - TeamRepository в памяти.
type fakeTeams struct {
	mu           sync.Mutex
	teams        []models.Team
	members      map[int][]models.TeamMember
	listErr      error
	membersErr   map[int]error
	created      *models.Team
	createErr    error
	addErr       error
	added        []models.TeamMember
	addedRoles   []models.MemberRole
	createdTeams []models.Team
	memberCalls  []int
}

func (f *fakeTeams) ListByActivityEvent(ctx context.Context, activityID, eventID int) ([]models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Team, len(f.teams))
	copy(out, f.teams)
	return out, nil
}

func (f *fakeTeams) ListAll(ctx context.Context) ([]models.Team, error) {
	return f.ListByActivityEvent(ctx, 0, 0)
}

func (f *fakeTeams) Create(ctx context.Context, team models.Team) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdTeams = append(f.createdTeams, team)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created == nil {
		return &models.Team{}, nil
	}
	c := *f.created
	return &c, nil
}

func (f *fakeTeams) ListMembers(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls = append(f.memberCalls, teamID)
	if err := f.membersErr[teamID]; err != nil {
		return nil, err
	}
	return f.members[teamID], nil
}

func (f *fakeTeams) AddMember(ctx context.Context, role models.MemberRole, member models.TeamMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, member)
	f.addedRoles = append(f.addedRoles, role)
	return f.addErr
}

func (f *fakeTeams) memberCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memberCalls)
}

type fakeEnrollments struct {
	mu          sync.Mutex
	byUser      map[int][]models.Enrollment
	byUserErr   error
	enrolled    map[eaKey][]models.EnrolledUser
	enrolledErr map[eaKey]error
	candidates  map[eaKey][]models.EnrolledUser
	createErr   error
	created     []models.Enrollment
	rosterCalls int
	roster      inflight
}

func (f *fakeEnrollments) Create(ctx context.Context, e models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, e)
	return f.createErr
}

func (f *fakeEnrollments) Update(ctx context.Context, e models.Enrollment) error { return nil }

func (f *fakeEnrollments) ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byUserErr != nil {
		return nil, f.byUserErr
	}
	return f.byUser[userID], nil
}

func (f *fakeEnrollments) ListEnrolledUsers(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error) {
	f.roster.enter()
	defer f.roster.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	k := eaKey{eventID, activityID}
	if err := f.enrolledErr[k]; err != nil {
		return nil, err
	}
	return f.enrolled[k], nil
}

func (f *fakeEnrollments) ListCaptainCandidates(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidates[eaKey{eventID, activityID}], nil
}

type fakeEvents struct {
	mu            sync.Mutex
	events        []models.Event
	perEvent      map[int][]models.EventActivity
	relations     []models.EventActivity
	perEventErr   error
	perEventCalls []int
}

func (f *fakeEvents) ListEvents(ctx context.Context) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func (f *fakeEvents) ListEventActivities(ctx context.Context, eventID int) ([]models.EventActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perEventCalls = append(f.perEventCalls, eventID)
	if f.perEventErr != nil {
		return nil, f.perEventErr
	}
	return f.perEvent[eventID], nil
}

func (f *fakeEvents) ListAllEventActivities(ctx context.Context) ([]models.EventActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relations, nil
}

type fakeCaptains struct {
	mu          sync.Mutex
	captaincies []models.Captaincy
	byEA        map[int]*models.EnrolledUser
	byUser      map[int]*models.EnrolledUser
	findErr     error
	createResp  *models.Captaincy
	updateResp  *models.Captaincy
	writeErr    error
	creates     []models.Captaincy
	updates     []models.Captaincy
	deletes     []int
	lookups     inflight
}

func (f *fakeCaptains) ListAll(ctx context.Context) ([]models.Captaincy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Captaincy(nil), f.captaincies...), nil
}

func (f *fakeCaptains) FindByEventActivity(ctx context.Context, eaID int) (*models.EnrolledUser, error) {
	f.lookups.enter()
	defer f.lookups.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byEA[eaID], nil
}

func (f *fakeCaptains) FindByUser(ctx context.Context, userID int) (*models.EnrolledUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUser[userID], nil
}

func (f *fakeCaptains) Create(ctx context.Context, c models.Captaincy) (*models.Captaincy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, c)
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.createResp != nil {
		r := *f.createResp
		return &r, nil
	}
	return &c, nil
}

func (f *fakeCaptains) Update(ctx context.Context, c models.Captaincy) (*models.Captaincy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, c)
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.updateResp != nil {
		r := *f.updateResp
		return &r, nil
	}
	return &c, nil
}

func (f *fakeCaptains) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.writeErr
}

func (f *fakeCaptains) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates) + len(f.deletes)
}

type fakeResults struct {
	mu        sync.Mutex
	results   []models.MatchResult
	listErr   error
	listCalls int
	gate      chan struct{}
	started   chan struct{}
	nextID    int
}

func (f *fakeResults) ListAll(ctx context.Context) ([]models.MatchResult, error) {
	f.mu.Lock()
	f.listCalls++
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.MatchResult(nil), f.results...), nil
}

func (f *fakeResults) Create(ctx context.Context, r models.MatchResult) (*models.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = 100 + f.nextID
	f.results = append(f.results, r)
	return &r, nil
}

func (f *fakeResults) Update(ctx context.Context, r models.MatchResult) (*models.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.results {
		if f.results[i].ID == r.ID {
			f.results[i] = r
		}
	}
	return &r, nil
}

func (f *fakeResults) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.results {
		if f.results[i].ID == id {
			f.results = append(f.results[:i], f.results[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeResults) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfiles) Current(ctx context.Context) (*models.Profile, error) {
	return f.profile, f.err
}

type fakeAudit struct {
	mu      sync.Mutex
	records []models.CaptainAssignment
	err     error
}

func (f *fakeAudit) Create(ctx context.Context, exec repositories.SQLExecutor, a *models.CaptainAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *a)
	return nil
}

func (f *fakeAudit) ListByEventActivity(ctx context.Context, exec repositories.SQLExecutor, eaID, limit int) ([]*models.CaptainAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CaptainAssignment
	for i := range f.records {
		if eaID == 0 || f.records[i].EventActivityID == eaID {
			r := f.records[i]
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeAudit) DeleteOlderThan(ctx context.Context, exec repositories.SQLExecutor, keep int) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]interface{}
}

func (f *fakeNotifier) BroadcastToRoom(room string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[string][]interface{})
	}
	f.messages[room] = append(f.messages[room], message)
}

func (f *fakeNotifier) count(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[room])
}
