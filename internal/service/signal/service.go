package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/util"
)

// responseCache is the slice of the cache service the adapter needs. A nil
// cache disables caching without changing behavior.
type responseCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ExpandQuery asks for same-category entities related to the given signal.
type ExpandQuery struct {
	EntityIDs    []string
	Tags         []string
	Category     domain.EntityCategory
	Demographics *domain.Demographics
	Limit        int
}

// CrossDomainQuery asks for entities of other categories biased by the
// given signal.
type CrossDomainQuery struct {
	EntityIDs        []string
	TargetCategories []domain.EntityCategory
	Demographics     *domain.Demographics
	Location         string
	Limit            int
}

type resolveResult struct {
	Best         *domain.Entity  `json:"best"`
	Alternatives []domain.Entity `json:"alternatives"`
}

// Service is the signal-source adapter: it resolves free-text queries to
// entities and pulls related entities within and across categories. Results
// are cached in Redis because resolution of the same query is frequent and
// the upstream is rate-limited.
type Service struct {
	client Requester
	cache  responseCache
	logger *zap.Logger
}

func NewService(client Requester, cache responseCache, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Resolve finds the best entity match for a query within a category. A nil
// best entity with a nil error means the query resolved to nothing; callers
// record that as absence, not failure.
func (s *Service) Resolve(ctx context.Context, query string, category domain.EntityCategory) (*domain.Entity, []domain.Entity, error) {
	cacheKey := fmt.Sprintf("signal:resolve:%s:%s", category, util.Normalize(query))

	if s.cache != nil {
		var cached resolveResult
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Best, cached.Alternatives, nil
		}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("types", categoryURN(category))
	params.Set("take", strconv.Itoa(constants.PipelineDefaults.MaxAlternatives+1))

	body, err := s.client.DoRequest(ctx, "GET", "/search", params)
	if err != nil {
		return nil, nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	entities := parseEntities(resp.Results)
	result := resolveResult{}
	if len(entities) > 0 {
		result.Best = &entities[0]
		rest := entities[1:]
		if len(rest) > constants.PipelineDefaults.MaxAlternatives {
			rest = rest[:constants.PipelineDefaults.MaxAlternatives]
		}
		result.Alternatives = rest
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, constants.CacheTTL.EntityResolve); err != nil {
			s.logger.Debug("Failed to cache resolve result", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	s.logger.Debug("Entity resolved",
		zap.String("query", query),
		zap.String("category", string(category)),
		zap.Bool("found", result.Best != nil),
	)

	return result.Best, result.Alternatives, nil
}

// Expand returns entities of the same category that people engaging with
// the signal entities also engage with.
func (s *Service) Expand(ctx context.Context, q ExpandQuery) ([]domain.Entity, error) {
	if len(q.EntityIDs) == 0 {
		return nil, fmt.Errorf("expand requires at least one entity id")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = constants.PipelineDefaults.ExpansionLimit
	}

	cacheKey := fmt.Sprintf("signal:expand:%s:%s", q.Category, strings.Join(q.EntityIDs, ","))

	if s.cache != nil {
		var cached []domain.Entity
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("filter.type", categoryURN(q.Category))
	params.Set("signal.interests.entities", strings.Join(q.EntityIDs, ","))
	params.Set("take", strconv.Itoa(limit))
	if len(q.Tags) > 0 {
		params.Set("signal.interests.tags", strings.Join(q.Tags, ","))
	}
	applyDemographics(params, q.Demographics)

	entities, err := s.insights(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entities, constants.CacheTTL.DomainExpansion); err != nil {
			s.logger.Debug("Failed to cache expansion", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return entities, nil
}

// CrossDomain executes one insights query per target category with the same
// entity signal. Per-category failures are skipped so one bad category does
// not void the rest; an error is returned only when nothing succeeded.
func (s *Service) CrossDomain(ctx context.Context, q CrossDomainQuery) (map[domain.EntityCategory][]domain.Entity, error) {
	if len(q.EntityIDs) == 0 {
		return nil, fmt.Errorf("cross-domain requires at least one entity id")
	}
	if len(q.TargetCategories) == 0 {
		return nil, fmt.Errorf("cross-domain requires at least one target category")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = constants.PipelineDefaults.CrossLimit
	}

	results := make(map[domain.EntityCategory][]domain.Entity)
	var lastErr error

	for _, target := range q.TargetCategories {
		params := url.Values{}
		params.Set("filter.type", categoryURN(target))
		params.Set("signal.interests.entities", strings.Join(q.EntityIDs, ","))
		params.Set("take", strconv.Itoa(limit))
		applyDemographics(params, q.Demographics)
		if q.Location != "" {
			params.Set("signal.location.query", q.Location)
		}

		entities, err := s.insights(ctx, params)
		if err != nil {
			lastErr = err
			s.logger.Warn("Cross-domain query failed for category",
				zap.String("target", string(target)),
				zap.Error(err),
			)
			continue
		}
		if len(entities) > 0 {
			results[target] = entities
		}
	}

	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return results, nil
}

func (s *Service) insights(ctx context.Context, params url.Values) ([]domain.Entity, error) {
	body, err := s.client.DoRequest(ctx, "GET", "/v2/insights", params)
	if err != nil {
		return nil, err
	}

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse insights response: %w", err)
	}

	return parseEntities(resp.Results.Entities), nil
}

func applyDemographics(params url.Values, demo *domain.Demographics) {
	if demo == nil {
		return
	}
	if demo.AgeBand != "" {
		params.Set("signal.demographics.age", string(demo.AgeBand))
	}
	if demo.Gender != "" && demo.Gender != domain.GenderUnspecified {
		params.Set("signal.demographics.gender", string(demo.Gender))
	}
}
