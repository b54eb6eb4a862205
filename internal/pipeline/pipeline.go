package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/events"
	"github.com/arim/tastemap-go/internal/service/signal"
	apperrors "github.com/arim/tastemap-go/pkg/errors"
)

// SignalSource is the cultural-graph capability the pipeline consumes.
type SignalSource interface {
	Resolve(ctx context.Context, query string, category domain.EntityCategory) (*domain.Entity, []domain.Entity, error)
	Expand(ctx context.Context, q signal.ExpandQuery) ([]domain.Entity, error)
	CrossDomain(ctx context.Context, q signal.CrossDomainQuery) (map[domain.EntityCategory][]domain.Entity, error)
}

// Classifier turns raw onboarding answers into categorized queries.
type Classifier interface {
	Classify(ctx context.Context, raw *domain.RawInterests) (*domain.NormalizedInput, error)
}

// Strategist proposes cross-domain pairings worth executing.
type Strategist interface {
	ProposePairings(ctx context.Context, resolved []domain.ResolvedEntity, expansions []domain.DomainExpansion) ([]domain.DomainPairing, error)
}

// Synthesizer writes the closing narrative.
type Synthesizer interface {
	Synthesize(ctx context.Context, name string, result *domain.TasteProfileResult) (string, error)
}

// EventSink receives progress events. Delivery is best-effort: a user with no
// open channel simply misses the live stream.
type EventSink interface {
	Deliver(userID string, event *events.Event) bool
}

// Config tunes a pipeline instance. Zero values fall back to defaults.
type Config struct {
	InsightDelay   time.Duration
	ExpansionLimit int
	CrossLimit     int
	Concurrency    int
}

func (c Config) withDefaults() Config {
	if c.InsightDelay < 0 {
		c.InsightDelay = 0
	}
	if c.ExpansionLimit <= 0 {
		c.ExpansionLimit = constants.PipelineDefaults.ExpansionLimit
	}
	if c.CrossLimit <= 0 {
		c.CrossLimit = constants.PipelineDefaults.CrossLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = constants.PipelineDefaults.Concurrency
	}
	return c
}

// Pipeline runs the five profiling stages for one user and streams progress
// through the event sink. A Pipeline is stateless across runs and safe for
// concurrent use.
type Pipeline struct {
	signals     SignalSource
	classifier  Classifier
	strategist  Strategist
	synthesizer Synthesizer
	sink        EventSink
	cfg         Config
	logger      *zap.Logger
}

func New(signals SignalSource, classifier Classifier, strategist Strategist, synthesizer Synthesizer, sink EventSink, cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		signals:     signals,
		classifier:  classifier,
		strategist:  strategist,
		synthesizer: synthesizer,
		sink:        sink,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// Run executes a full profiling run. Classification and synthesis failures
// abort the run; resolution, expansion and cross-domain failures are isolated
// per item so partial data still produces a profile.
func (p *Pipeline) Run(ctx context.Context, raw *domain.RawInterests) (*domain.TasteProfileResult, error) {
	userID := raw.UserID
	timeline := domain.NewProfilingTimeline()

	// Stage 1: classify.
	p.setStatus(timeline, domain.TimelineInterests, domain.TimelineInProgress)
	p.emitTimeline(userID, timeline)

	input, err := p.classifier.Classify(ctx, raw)
	if err != nil {
		return nil, err
	}

	p.emitMessage(userID, domain.TimelineInterests,
		fmt.Sprintf("Found %d interests to explore.", len(input.Queries)))
	p.setStatus(timeline, domain.TimelineInterests, domain.TimelineCompleted)
	p.setStatus(timeline, domain.TimelineResolve, domain.TimelineInProgress)
	p.emitTimeline(userID, timeline)

	// Stage 2: resolve.
	resolved, err := p.resolveStage(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	p.setStatus(timeline, domain.TimelineResolve, domain.TimelineCompleted)
	p.setStatus(timeline, domain.TimelineExpand, domain.TimelineInProgress)
	p.emitTimeline(userID, timeline)

	// Stage 3: expand per category.
	expansions, err := p.expandStage(ctx, userID, resolved, input.Demographics)
	if err != nil {
		return nil, err
	}

	p.setStatus(timeline, domain.TimelineExpand, domain.TimelineCompleted)
	p.setStatus(timeline, domain.TimelineCrossings, domain.TimelineInProgress)
	p.emitTimeline(userID, timeline)

	// Stage 4: pair and cross-analyze.
	insights, err := p.crossStage(ctx, userID, resolved, expansions, input.Demographics)
	if err != nil {
		return nil, err
	}

	p.setStatus(timeline, domain.TimelineCrossings, domain.TimelineCompleted)
	p.setStatus(timeline, domain.TimelineSynthesis, domain.TimelineInProgress)
	p.emitTimeline(userID, timeline)

	// Stage 5: synthesize.
	result := &domain.TasteProfileResult{
		PrimaryEntities:     resolved,
		DomainExpansions:    expansions,
		CrossDomainInsights: insights,
	}

	analysis, err := p.synthesizer.Synthesize(ctx, raw.Name, result)
	if err != nil {
		return nil, err
	}
	result.FinalAnalysis = analysis

	p.emitMessage(userID, domain.TimelineSynthesis, analysis)
	p.setStatus(timeline, domain.TimelineSynthesis, domain.TimelineCompleted)
	p.emitTimeline(userID, timeline)

	p.logger.Info("Profiling run complete",
		zap.String("user_id", userID),
		zap.Int("resolved", len(result.PrimaryResolved())),
		zap.Int("expansions", len(expansions)),
		zap.Int("crossings", len(insights)),
	)

	return result, nil
}

// resolveStage resolves every query in input order, recording failures on the
// entry instead of aborting. A run where nothing resolved has no signal to
// work with, so that case is fatal.
func (p *Pipeline) resolveStage(ctx context.Context, userID string, input *domain.NormalizedInput) ([]domain.ResolvedEntity, error) {
	resolved := make([]domain.ResolvedEntity, 0, len(input.Queries))
	successful := 0

	for _, q := range input.Queries {
		entry := domain.ResolvedEntity{Input: q}

		best, alternatives, err := p.signals.Resolve(ctx, q.Query, q.Category)
		switch {
		case err != nil:
			entry.Err = err.Error()
			p.logger.Warn("Entity resolution failed",
				zap.String("query", q.Query),
				zap.String("category", string(q.Category)),
				zap.Error(err),
			)
		case best == nil:
			entry.Err = "no match found"
		default:
			entry.Resolved = best
			entry.Alternatives = alternatives
			successful++

			p.emitInsight(userID, domain.TimelineResolve, "entity", string(q.Category), best)
			if err := p.pace(ctx); err != nil {
				return nil, err
			}
		}

		resolved = append(resolved, entry)
	}

	p.emit(events.New(events.TypeMessage, userID, events.SummaryData{
		Stage:      domain.TimelineResolve,
		Successful: successful,
		Total:      len(input.Queries),
	}))

	if successful == 0 {
		return nil, apperrors.NewPipelineError("none of the interests could be resolved", domain.TimelineResolve, nil)
	}

	return resolved, nil
}

// expandStage runs one expansion query per category that has resolved
// entities. Categories fan out concurrently; failures drop the category.
func (p *Pipeline) expandStage(ctx context.Context, userID string, resolved []domain.ResolvedEntity, demo domain.Demographics) ([]domain.DomainExpansion, error) {
	byCategory := domain.ResolvedByCategory(resolved)

	categories := make([]domain.EntityCategory, 0, len(byCategory))
	for _, cat := range domain.AllCategories {
		if len(byCategory[cat]) > 0 {
			categories = append(categories, cat)
		}
	}

	results := make([]*domain.DomainExpansion, len(categories))
	wp := pool.New().WithMaxGoroutines(p.cfg.Concurrency)

	for i, cat := range categories {
		i, cat := i, cat
		entities := byCategory[cat]

		wp.Go(func() {
			ids := make([]string, 0, len(entities))
			tags := make([]string, 0)
			for _, e := range entities {
				ids = append(ids, e.ID)
				tags = append(tags, e.Tags...)
			}

			expanded, err := p.signals.Expand(ctx, signal.ExpandQuery{
				EntityIDs:    ids,
				Tags:         tags,
				Category:     cat,
				Demographics: &demo,
				Limit:        p.cfg.ExpansionLimit,
			})
			if err != nil {
				p.logger.Warn("Domain expansion failed",
					zap.String("category", string(cat)),
					zap.Error(err),
				)
				return
			}
			if len(expanded) == 0 {
				return
			}

			results[i] = &domain.DomainExpansion{Category: cat, Entities: expanded}
		})
	}
	wp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expansions := make([]domain.DomainExpansion, 0, len(categories))
	for _, r := range results {
		if r == nil {
			continue
		}
		expansions = append(expansions, *r)

		p.emitInsight(userID, domain.TimelineExpand, "expansion", string(r.Category), r.Entities)
		if err := p.pace(ctx); err != nil {
			return nil, err
		}
	}

	return expansions, nil
}

// crossStage asks the strategist for pairings and executes them against the
// signal source. The strategist failing outright is survivable: the profile
// just ships without cross-domain discoveries.
func (p *Pipeline) crossStage(ctx context.Context, userID string, resolved []domain.ResolvedEntity, expansions []domain.DomainExpansion, demo domain.Demographics) ([]domain.CrossDomainInsight, error) {
	pairings, err := p.strategist.ProposePairings(ctx, resolved, expansions)
	if err != nil {
		p.logger.Warn("Pairing proposal failed, skipping cross-domain stage",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, ctx.Err()
	}

	executable := make([]domain.DomainPairing, 0, len(pairings))
	for _, pairing := range pairings {
		if len(pairing.SourceEntityIDs) == 0 {
			continue
		}
		executable = append(executable, pairing)
	}

	results := make([]*domain.CrossDomainInsight, len(executable))
	wp := pool.New().WithMaxGoroutines(p.cfg.Concurrency)

	for i, pairing := range executable {
		i, pairing := i, pairing

		wp.Go(func() {
			crossed, err := p.signals.CrossDomain(ctx, signal.CrossDomainQuery{
				EntityIDs:        pairing.SourceEntityIDs,
				TargetCategories: []domain.EntityCategory{pairing.TargetCategory},
				Demographics:     &demo,
				Location:         demo.Location,
				Limit:            p.cfg.CrossLimit,
			})
			if err != nil {
				p.logger.Warn("Cross-domain query failed",
					zap.String("source", string(pairing.SourceCategory)),
					zap.String("target", string(pairing.TargetCategory)),
					zap.Error(err),
				)
				return
			}
			if len(crossed) == 0 {
				return
			}

			results[i] = &domain.CrossDomainInsight{Pairing: pairing, Results: crossed}
		})
	}
	wp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	insights := make([]domain.CrossDomainInsight, 0, len(executable))
	for _, r := range results {
		if r == nil {
			continue
		}
		insights = append(insights, *r)

		p.emitInsight(userID, domain.TimelineCrossings, "crossing", string(r.Pairing.TargetCategory), r)
		if err := p.pace(ctx); err != nil {
			return nil, err
		}
	}

	return insights, nil
}

func (p *Pipeline) setStatus(timeline []domain.TimelineItem, id string, status domain.TimelineStatus) {
	for i := range timeline {
		if timeline[i].ID == id {
			timeline[i].Status = status
			return
		}
	}
}

func (p *Pipeline) emitTimeline(userID string, timeline []domain.TimelineItem) {
	snapshot := make([]domain.TimelineItem, len(timeline))
	copy(snapshot, timeline)
	p.emit(events.New(events.TypeTimelineUpdate, userID, events.TimelineData{Items: snapshot}))
}

func (p *Pipeline) emitMessage(userID, stage, text string) {
	p.emit(events.New(events.TypeMessage, userID, events.MessageData{Stage: stage, Text: text}))
}

func (p *Pipeline) emitInsight(userID, stage, kind, category string, payload any) {
	p.emit(events.New(events.TypeInsight, userID, events.InsightData{
		Stage:    stage,
		Kind:     kind,
		Category: category,
		Payload:  payload,
	}))
}

func (p *Pipeline) emit(event *events.Event) {
	p.sink.Deliver(event.UserID, event)
}

// pace spreads streamed insights out so the client renders them as a feed
// rather than a burst. Cancellation interrupts the wait.
func (p *Pipeline) pace(ctx context.Context) error {
	if p.cfg.InsightDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.InsightDelay):
		return nil
	}
}
