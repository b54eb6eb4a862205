package prompt

import (
	"fmt"
	"strings"
)

// PairingPromptVars holds variables for the cross-domain pairing prompt
type PairingPromptVars struct {
	ProfileSummary string
	Categories     []string
	MaxPairings    int
}

// BuildPairingPrompt builds the prompt that proposes which category pairs
// are worth cross-analyzing for this user.
func BuildPairingPrompt(vars PairingPromptVars) string {
	return fmt.Sprintf(`You are a cultural analyst for a taste-profiling service.
Given a user's resolved interests, propose the most promising cross-domain pairings to analyze.

## User Profile:
%s

## Categories Present in Profile:
%s

## Response Format (JSON ONLY):
{
  "pairings": [
    {
      "source_category": "artist",
      "target_category": "movie",
      "reasoning": "Art-rock taste suggests affinity for atmospheric sci-fi cinema"
    }
  ]
}

**Rules**:
- Propose at most %d pairings, ordered from most to least promising.
- "source_category" MUST be one of the categories present in the profile above.
- "target_category" may be any category, including ones not in the profile.
- source and target must differ.
- "reasoning" is one sentence, max 20 words.
- Skip pairings that would be generic for any user; prefer ones specific to THIS profile.`,
		vars.ProfileSummary,
		strings.Join(vars.Categories, ", "),
		vars.MaxPairings,
	)
}
