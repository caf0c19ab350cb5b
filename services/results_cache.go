package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Dosada05/club-coordinator/broker"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	PlaceholderHomeTeam = "Home Team"
	PlaceholderAwayTeam = "Away Team"
	PlaceholderNoDate   = "No Date"
	PlaceholderActivity = "No Activity"

	eventNameLayout = "02/01/2006"
)

// ResultsCache собирает денормализованные результаты матчей из четырёх коллекций
// и держит их в памяти до явного сброса.
//
// Параллельные вызовы во время загрузки ждут одну и ту же загрузку.
// Загрузка, начатая до InvalidateCache, не может записать результат в кэш.
// Ошибки не кэшируются.
type ResultsCache struct {
	results repositories.MatchResultRepository
	teams   repositories.TeamRepository
	events  repositories.EventRepository
	broker  broker.Broker
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
	cached     []models.ResultView
	valid      bool
	inflight   *resultsLoad
}

type resultsLoad struct {
	gen   uint64
	done  chan struct{}
	value []models.ResultView
	err   error
}

func NewResultsCache(
	results repositories.MatchResultRepository,
	teams repositories.TeamRepository,
	events repositories.EventRepository,
	b broker.Broker,
	logger *slog.Logger,
) *ResultsCache {
	if b == nil {
		b = broker.Noop{}
	}
	return &ResultsCache{
		results: results,
		teams:   teams,
		events:  events,
		broker:  b,
		logger:  logger,
	}
}

// GetAggregatedResults возвращает закэшированные результаты или загружает их один раз.
func (c *ResultsCache) GetAggregatedResults(ctx context.Context) ([]models.ResultView, error) {
	c.mu.Lock()
	if c.valid {
		value := slices.Clone(c.cached)
		c.mu.Unlock()
		return value, nil
	}
	load := c.inflight
	if load == nil {
		load = &resultsLoad{gen: c.generation, done: make(chan struct{})}
		c.inflight = load
		go c.run(context.WithoutCancel(ctx), load)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-load.done:
	}
	if load.err != nil {
		return nil, load.err
	}
	return slices.Clone(load.value), nil
}

func (c *ResultsCache) run(ctx context.Context, load *resultsLoad) {
	value, err := c.fetch(ctx)

	c.mu.Lock()
	load.value, load.err = value, err
	if c.inflight == load {
		c.inflight = nil
	}
	if err == nil && load.gen == c.generation {
		c.cached = value
		c.valid = true
	}
	c.mu.Unlock()
	close(load.done)

	if err != nil {
		c.logger.WarnContext(ctx, "aggregated results load failed", slog.Any("error", err))
	} else {
		c.logger.DebugContext(ctx, "aggregated results loaded", slog.Int("results", len(value)))
	}
}

// InvalidateCache сбрасывает кэш и оповещает другие экземпляры.
func (c *ResultsCache) InvalidateCache(ctx context.Context) {
	c.invalidateLocal()
	if err := c.broker.Publish(ctx, broker.ResultsInvalidateChannel); err != nil {
		c.logger.WarnContext(ctx, "failed to publish results invalidation", slog.Any("error", err))
	}
}

func (c *ResultsCache) invalidateLocal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cached = nil
	c.valid = false
	c.inflight = nil
}

// Listen сбрасывает кэш по сигналам других экземпляров до отмены ctx.
func (c *ResultsCache) Listen(ctx context.Context) error {
	return c.broker.Subscribe(ctx, broker.ResultsInvalidateChannel, c.invalidateLocal)
}

type resultSources struct {
	results   []models.MatchResult
	teams     []models.Team
	relations []models.EventActivity
	events    []models.Event
	perEvent  []models.EventActivity
}

func (c *ResultsCache) fetch(ctx context.Context) ([]models.ResultView, error) {
	var src resultSources

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		src.results, err = c.results.ListAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		src.teams, err = c.teams.ListAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		src.relations, err = c.events.ListAllEventActivities(gCtx)
		return err
	})
	g.Go(func() (err error) {
		src.events, err = c.events.ListEvents(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: load results: %w", ErrBackendFailed, err)
	}

	eventIDs := eventsWithResults(src.results, src.relations)
	if len(eventIDs) > 0 {
		perEvent := make([][]models.EventActivity, len(eventIDs))
		g, gCtx = errgroup.WithContext(ctx)
		g.SetLimit(eventActivitiesLimit)
		for i, id := range eventIDs {
			g.Go(func() error {
				list, err := c.events.ListEventActivities(gCtx, id)
				if err != nil {
					return err
				}
				perEvent[i] = list
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("%w: load activity names: %w", ErrBackendFailed, err)
		}
		for _, list := range perEvent {
			src.perEvent = append(src.perEvent, list...)
		}
	}

	return assembleResults(src), nil
}

// eventsWithResults - id событий, у которых есть хотя бы один результат, по возрастанию.
func eventsWithResults(results []models.MatchResult, relations []models.EventActivity) []int {
	relationByID := make(map[int]models.EventActivity, len(relations))
	for _, r := range relations {
		relationByID[r.ID] = r
	}
	seen := make(map[int]struct{})
	var ids []int
	for _, res := range results {
		rel, ok := relationByID[res.EventActivityID]
		if !ok || rel.EventID == 0 {
			continue
		}
		if _, dup := seen[rel.EventID]; dup {
			continue
		}
		seen[rel.EventID] = struct{}{}
		ids = append(ids, rel.EventID)
	}
	slices.Sort(ids)
	return ids
}

func assembleResults(src resultSources) []models.ResultView {
	teamsByID := make(map[int]models.Team, len(src.teams))
	for _, t := range src.teams {
		teamsByID[t.ID] = t
	}
	relationByID := make(map[int]models.EventActivity, len(src.relations))
	for _, r := range src.relations {
		relationByID[r.ID] = r
	}
	eventsByID := make(map[int]models.Event, len(src.events))
	for _, e := range src.events {
		eventsByID[e.ID] = e
	}
	activityNames := make(map[int]string, len(src.perEvent))
	for _, a := range src.perEvent {
		if a.ActivityName != "" {
			activityNames[a.ID] = a.ActivityName
		}
	}

	views := make([]models.ResultView, 0, len(src.results))
	for _, res := range src.results {
		view := models.ResultView{
			ID:              res.ID,
			EventActivityID: res.EventActivityID,
			HomeTeamID:      res.HomeTeamID,
			AwayTeamID:      res.AwayTeamID,
			HomeScore:       res.HomeScore,
			AwayScore:       res.AwayScore,
			HomeTeam:        teamName(teamsByID, res.HomeTeamID, PlaceholderHomeTeam),
			AwayTeam:        teamName(teamsByID, res.AwayTeamID, PlaceholderAwayTeam),
			EventName:       PlaceholderNoDate,
			ActivityName:    PlaceholderActivity,
		}

		rel, hasRelation := relationByID[res.EventActivityID]
		if hasRelation {
			view.EventID = rel.EventID
			view.ActivityID = rel.ActivityID
			if event, ok := eventsByID[rel.EventID]; ok {
				view.EventDate = event.Date
				if !event.Date.IsZero() {
					view.EventName = event.Date.Format(eventNameLayout)
				}
			}
		}

		if name, ok := activityNames[res.EventActivityID]; ok {
			view.ActivityName = name
		} else if hasRelation && rel.ActivityName != "" {
			view.ActivityName = rel.ActivityName
		}

		views = append(views, view)
	}
	return views
}

func teamName(teams map[int]models.Team, id int, placeholder string) string {
	if t, ok := teams[id]; ok && t.Name != "" {
		return t.Name
	}
	return placeholder
}
