package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/prompt"
	apperrors "github.com/arim/tastemap-go/pkg/errors"
)

// Synthesizer writes the closing narrative for a completed profile.
type Synthesizer struct {
	generator Generator
	logger    *zap.Logger
}

func NewSynthesizer(generator Generator, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    logger,
	}
}

// Synthesize produces the final analysis text. The result is guaranteed
// non-empty on a nil error.
func (s *Synthesizer) Synthesize(ctx context.Context, name string, result *domain.TasteProfileResult) (string, error) {
	byCategory := domain.ResolvedByCategory(result.PrimaryEntities)

	promptText := prompt.BuildSynthesisPrompt(prompt.SynthesisPromptVars{
		Name:           name,
		ProfileSummary: summarizeProfile(byCategory, result.DomainExpansions),
		Discoveries:    summarizeDiscoveries(result.CrossDomainInsights),
	})

	text, metadata, err := s.generator.GenerateText(ctx, promptText, PresetCreative, nil)
	if err != nil {
		return "", apperrors.NewPipelineError("synthesis failed", "synthesis", err)
	}

	s.logger.Info("Synthesis complete",
		zap.Int("length", len(text)),
		zap.String("provider", metadata.Provider),
		zap.Bool("used_fallback", metadata.UsedFallback),
	)

	return text, nil
}

func summarizeDiscoveries(insights []domain.CrossDomainInsight) string {
	if len(insights) == 0 {
		return "(none)"
	}

	var b strings.Builder
	for _, insight := range insights {
		for cat, entities := range insight.Results {
			if len(entities) == 0 {
				continue
			}
			names := make([]string, 0, len(entities))
			for _, e := range entities {
				names = append(names, e.Name)
			}
			fmt.Fprintf(&b, "- %s -> %s: %s (%s)\n",
				insight.Pairing.SourceCategory,
				cat,
				strings.Join(names, ", "),
				insight.Pairing.Reasoning,
			)
		}
	}

	if b.Len() == 0 {
		return "(none)"
	}
	return b.String()
}
