package ai

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/prompt"
	"github.com/arim/tastemap-go/internal/util"
	apperrors "github.com/arim/tastemap-go/pkg/errors"
)

// Classifier turns raw onboarding answers into categorized entity queries.
type Classifier struct {
	generator Generator
	logger    *zap.Logger
}

func NewClassifier(generator Generator, logger *zap.Logger) *Classifier {
	return &Classifier{
		generator: generator,
		logger:    logger,
	}
}

type classifyResponse struct {
	Queries []struct {
		Query    string `json:"query"`
		Category string `json:"category"`
	} `json:"queries"`
}

// Classify extracts entity queries from the raw interests. Entries the model
// cannot place in a known category are dropped; an input that yields no usable
// query at all is an error because there is nothing to profile.
func (c *Classifier) Classify(ctx context.Context, raw *domain.RawInterests) (*domain.NormalizedInput, error) {
	entries := raw.Entries()
	if len(entries) > constants.AIInputLimits.MaxInterestCount {
		entries = entries[:constants.AIInputLimits.MaxInterestCount]
	}
	for i, entry := range entries {
		entries[i] = util.TruncateString(entry, constants.AIInputLimits.MaxInterestLength)
	}

	if len(entries) == 0 {
		return nil, apperrors.NewValidationError("no interest entries to classify", "interests", nil)
	}

	categories := make([]string, 0, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		categories = append(categories, string(cat))
	}

	promptText := prompt.BuildClassifyPrompt(prompt.ClassifyPromptVars{
		Name:       raw.Name,
		Age:        raw.Age,
		Gender:     raw.Gender,
		Location:   raw.Location,
		Interests:  entries,
		Categories: categories,
	})

	var resp classifyResponse
	metadata, err := c.generator.GenerateJSON(ctx, promptText, PresetPrecise, &resp, nil)
	if err != nil {
		return nil, apperrors.NewPipelineError("interest classification failed", "classify", err)
	}

	queries := make([]domain.EntityQuery, 0, len(resp.Queries))
	seen := make(map[string]bool)
	for _, q := range resp.Queries {
		text := strings.TrimSpace(q.Query)
		if text == "" {
			continue
		}
		category, ok := domain.ParseCategory(q.Category)
		if !ok {
			c.logger.Debug("Dropping query with unknown category",
				zap.String("query", text),
				zap.String("category", q.Category),
			)
			continue
		}
		key := string(category) + ":" + util.Normalize(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, domain.EntityQuery{Query: text, Category: category})
	}

	if len(queries) == 0 {
		return nil, apperrors.NewPipelineError("no classifiable interests found", "classify", nil)
	}

	c.logger.Info("Interests classified",
		zap.Int("entries", len(entries)),
		zap.Int("queries", len(queries)),
		zap.String("provider", metadata.Provider),
		zap.Bool("used_fallback", metadata.UsedFallback),
	)

	return &domain.NormalizedInput{
		Queries: queries,
		Demographics: domain.Demographics{
			AgeBand:  domain.BucketAge(raw.Age),
			Gender:   domain.NormalizeGender(raw.Gender),
			Location: strings.TrimSpace(raw.Location),
		},
	}, nil
}
