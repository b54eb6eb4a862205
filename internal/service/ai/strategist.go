package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/prompt"
	apperrors "github.com/arim/tastemap-go/pkg/errors"
)

// Strategist proposes which cross-domain pairings are worth executing for a
// given profile.
type Strategist struct {
	generator   Generator
	maxPairings int
	logger      *zap.Logger
}

func NewStrategist(generator Generator, maxPairings int, logger *zap.Logger) *Strategist {
	if maxPairings <= 0 {
		maxPairings = constants.PipelineDefaults.MaxPairings
	}
	return &Strategist{
		generator:   generator,
		maxPairings: maxPairings,
		logger:      logger,
	}
}

type pairingResponse struct {
	Pairings []struct {
		SourceCategory string `json:"source_category"`
		TargetCategory string `json:"target_category"`
		Reasoning      string `json:"reasoning"`
	} `json:"pairings"`
}

// ProposePairings returns validated pairings with their source entity IDs
// attached. Pairings whose source category has no resolved entities are
// discarded here, so callers never execute an empty-signal query.
func (s *Strategist) ProposePairings(ctx context.Context, resolved []domain.ResolvedEntity, expansions []domain.DomainExpansion) ([]domain.DomainPairing, error) {
	byCategory := domain.ResolvedByCategory(resolved)
	if len(byCategory) == 0 {
		return nil, apperrors.NewPipelineError("no resolved entities to pair", "pairing", nil)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, string(cat))
	}

	promptText := prompt.BuildPairingPrompt(prompt.PairingPromptVars{
		ProfileSummary: summarizeProfile(byCategory, expansions),
		Categories:     categories,
		MaxPairings:    s.maxPairings,
	})

	var resp pairingResponse
	metadata, err := s.generator.GenerateJSON(ctx, promptText, PresetBalanced, &resp, nil)
	if err != nil {
		return nil, apperrors.NewPipelineError("pairing proposal failed", "pairing", err)
	}

	pairings := make([]domain.DomainPairing, 0, s.maxPairings)
	for _, p := range resp.Pairings {
		if len(pairings) >= s.maxPairings {
			break
		}

		source, ok := domain.ParseCategory(p.SourceCategory)
		if !ok {
			s.logger.Debug("Dropping pairing with unknown source category", zap.String("source", p.SourceCategory))
			continue
		}
		target, ok := domain.ParseCategory(p.TargetCategory)
		if !ok {
			s.logger.Debug("Dropping pairing with unknown target category", zap.String("target", p.TargetCategory))
			continue
		}
		if source == target {
			continue
		}

		sourceEntities := byCategory[source]
		if len(sourceEntities) == 0 {
			s.logger.Debug("Dropping pairing with no resolved source entities", zap.String("source", string(source)))
			continue
		}

		ids := make([]string, 0, len(sourceEntities))
		for _, e := range sourceEntities {
			ids = append(ids, e.ID)
		}

		pairings = append(pairings, domain.DomainPairing{
			SourceCategory:  source,
			TargetCategory:  target,
			Reasoning:       strings.TrimSpace(p.Reasoning),
			SourceEntityIDs: ids,
		})
	}

	s.logger.Info("Pairings proposed",
		zap.Int("proposed", len(resp.Pairings)),
		zap.Int("accepted", len(pairings)),
		zap.String("provider", metadata.Provider),
	)

	return pairings, nil
}

func summarizeProfile(byCategory map[domain.EntityCategory][]domain.Entity, expansions []domain.DomainExpansion) string {
	var b strings.Builder
	for _, cat := range domain.AllCategories {
		entities, ok := byCategory[cat]
		if !ok {
			continue
		}
		names := make([]string, 0, len(entities))
		for _, e := range entities {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(names, ", "))
	}

	for _, exp := range expansions {
		if len(exp.Entities) == 0 {
			continue
		}
		names := make([]string, 0, len(exp.Entities))
		for _, e := range exp.Entities {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "- related %s: %s\n", exp.Category, strings.Join(names, ", "))
	}

	return b.String()
}
