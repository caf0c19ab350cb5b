package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/club-coordinator/models"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []string
	handler   func()
}

func (b *fakeBroker) Publish(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string, handler func()) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func date(y int, m time.Month, d int) models.APITime {
	return models.APITime{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

type resultsFixture struct {
	results *fakeResults
	teams   *fakeTeams
	events  *fakeEvents
	broker  *fakeBroker
	cache   *ResultsCache
}

// newResultsFixture: события 5 и 6, в событии 7 результатов нет.
func newResultsFixture() *resultsFixture {
	f := &resultsFixture{
		results: &fakeResults{results: []models.MatchResult{
			{ID: 9, EventActivityID: 501, HomeTeamID: 1, AwayTeamID: 2, HomeScore: 3, AwayScore: 1},
			{ID: 10, EventActivityID: 601, HomeTeamID: 2, AwayTeamID: 99, HomeScore: 0, AwayScore: 2},
		}},
		teams: &fakeTeams{teams: []models.Team{{ID: 1, Name: "Tigres"}, {ID: 2, Name: "Leones"}}},
		events: &fakeEvents{
			events: []models.Event{{ID: 5, Date: date(2024, time.March, 9)}, {ID: 6}, {ID: 7, Date: date(2024, time.May, 1)}},
			relations: []models.EventActivity{
				{ID: 501, EventID: 5, ActivityID: 100},
				{ID: 601, EventID: 6, ActivityID: 200, ActivityName: "Relación"},
				{ID: 701, EventID: 7, ActivityID: 100},
			},
			perEvent: map[int][]models.EventActivity{
				5: {{ID: 501, EventID: 5, ActivityID: 100, ActivityName: "Fútbol"}},
			},
		},
		broker: &fakeBroker{},
	}
	f.cache = NewResultsCache(f.results, f.teams, f.events, f.broker, discardLogger())
	return f
}

func resultByID(views []models.ResultView, id int) (models.ResultView, bool) {
	for _, v := range views {
		if v.ID == id {
			return v, true
		}
	}
	return models.ResultView{}, false
}

func TestAggregatedResultsJoin(t *testing.T) {
	f := newResultsFixture()

	views, err := f.cache.GetAggregatedResults(context.Background())
	if err != nil {
		t.Fatalf("GetAggregatedResults() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("results = %d, want 2", len(views))
	}

	first, _ := resultByID(views, 9)
	if first.HomeTeam != "Tigres" || first.AwayTeam != "Leones" {
		t.Errorf("teams = %q/%q", first.HomeTeam, first.AwayTeam)
	}
	if first.EventID != 5 || first.ActivityID != 100 || first.ActivityName != "Fútbol" {
		t.Errorf("first = %+v", first)
	}
	if first.EventName != "09/03/2024" {
		t.Errorf("EventName = %q", first.EventName)
	}

	second, _ := resultByID(views, 10)
	if second.AwayTeam != PlaceholderAwayTeam {
		t.Errorf("AwayTeam = %q, want placeholder", second.AwayTeam)
	}
	if second.EventName != PlaceholderNoDate {
		t.Errorf("EventName = %q, want placeholder", second.EventName)
	}
	if second.ActivityName != "Relación" {
		t.Errorf("ActivityName = %q, want relation name", second.ActivityName)
	}

	if got := f.events.perEventCalls; len(got) != 2 {
		t.Errorf("per-event fetches = %v, want events 5 and 6 only", got)
	}
}

func TestAggregatedResultsPlaceholders(t *testing.T) {
	f := newResultsFixture()
	f.results.results = []models.MatchResult{{ID: 1, EventActivityID: 999, HomeTeamID: 50, AwayTeamID: 51}}

	views, err := f.cache.GetAggregatedResults(context.Background())
	if err != nil {
		t.Fatalf("GetAggregatedResults() error = %v", err)
	}
	v := views[0]
	if v.HomeTeam != PlaceholderHomeTeam || v.AwayTeam != PlaceholderAwayTeam ||
		v.EventName != PlaceholderNoDate || v.ActivityName != PlaceholderActivity {
		t.Errorf("view = %+v", v)
	}
	if len(f.events.perEventCalls) != 0 {
		t.Errorf("per-event fetches = %v, want none", f.events.perEventCalls)
	}
}

func TestAggregatedResultsCached(t *testing.T) {
	f := newResultsFixture()
	ctx := context.Background()

	first, _ := f.cache.GetAggregatedResults(ctx)
	first[0].HomeTeam = "mutated"

	second, err := f.cache.GetAggregatedResults(ctx)
	if err != nil {
		t.Fatalf("GetAggregatedResults() error = %v", err)
	}
	if f.results.calls() != 1 {
		t.Errorf("list calls = %d, want 1", f.results.calls())
	}
	if second[0].HomeTeam == "mutated" {
		t.Error("callers share the cached slice")
	}
}

func TestInvalidateAfterDeleteHidesResult(t *testing.T) {
	f := newResultsFixture()
	ctx := context.Background()

	if _, err := f.cache.GetAggregatedResults(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.results.Delete(ctx, 9); err != nil {
		t.Fatal(err)
	}
	f.cache.InvalidateCache(ctx)

	views, err := f.cache.GetAggregatedResults(ctx)
	if err != nil {
		t.Fatalf("GetAggregatedResults() error = %v", err)
	}
	if _, ok := resultByID(views, 9); ok {
		t.Error("deleted result 9 still present")
	}
	if len(f.broker.published) != 1 {
		t.Errorf("published = %v", f.broker.published)
	}
}

func TestConcurrentCallersShareOneLoad(t *testing.T) {
	f := newResultsFixture()
	f.results.gate = make(chan struct{})
	f.results.started = make(chan struct{}, 1)

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			views, err := f.cache.GetAggregatedResults(context.Background())
			if err == nil && len(views) != 2 {
				err = errors.New("unexpected result count")
			}
			errs <- err
		}()
	}

	<-f.results.started
	// даём остальным вызовам встать в ожидание той же загрузки
	time.Sleep(20 * time.Millisecond)
	close(f.results.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("caller error = %v", err)
		}
	}
	if n := f.results.calls(); n != 1 {
		t.Errorf("list calls = %d, want 1", n)
	}
}

func TestInvalidateDuringLoadDiscardsStaleValue(t *testing.T) {
	f := newResultsFixture()
	f.results.gate = make(chan struct{})
	f.results.started = make(chan struct{}, 1)

	done := make(chan []models.ResultView)
	go func() {
		views, _ := f.cache.GetAggregatedResults(context.Background())
		done <- views
	}()

	<-f.results.started
	f.cache.InvalidateCache(context.Background())
	close(f.results.gate)
	<-done

	f.results.mu.Lock()
	f.results.gate = nil
	f.results.results = f.results.results[:1]
	f.results.mu.Unlock()

	views, err := f.cache.GetAggregatedResults(context.Background())
	if err != nil {
		t.Fatalf("GetAggregatedResults() error = %v", err)
	}
	if len(views) != 1 {
		t.Errorf("results = %d, want fresh load with 1", len(views))
	}
	if n := f.results.calls(); n != 2 {
		t.Errorf("list calls = %d, want 2", n)
	}
}

func TestAggregatedResultsErrorsNotCached(t *testing.T) {
	f := newResultsFixture()
	f.results.listErr = errBoom

	if _, err := f.cache.GetAggregatedResults(context.Background()); !errors.Is(err, ErrBackendFailed) {
		t.Fatalf("error = %v, want ErrBackendFailed", err)
	}

	f.results.mu.Lock()
	f.results.listErr = nil
	f.results.mu.Unlock()

	views, err := f.cache.GetAggregatedResults(context.Background())
	if err != nil || len(views) != 2 {
		t.Errorf("retry = %d results, %v", len(views), err)
	}
}

func TestAggregatedResultsPerEventError(t *testing.T) {
	f := newResultsFixture()
	f.events.perEventErr = errBoom

	if _, err := f.cache.GetAggregatedResults(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("error = %v", err)
	}
}

func TestListenInvalidatesFromRemote(t *testing.T) {
	f := newResultsFixture()
	if err := f.cache.Listen(context.Background()); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if _, err := f.cache.GetAggregatedResults(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.broker.handler()

	if _, err := f.cache.GetAggregatedResults(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := f.results.calls(); n != 2 {
		t.Errorf("list calls = %d, want reload after remote invalidation", n)
	}
	if len(f.broker.published) != 0 {
		t.Error("remote invalidation must not be republished")
	}
}
