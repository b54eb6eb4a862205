package prompt

import "fmt"

// SynthesisPromptVars holds variables for the final narrative prompt
type SynthesisPromptVars struct {
	Name           string
	ProfileSummary string
	Discoveries    string
}

// BuildSynthesisPrompt builds the prompt for the closing narrative that ties
// the whole profile together.
func BuildSynthesisPrompt(vars SynthesisPromptVars) string {
	return fmt.Sprintf(`You are writing the closing analysis of a taste profile for a user named %s.

## Confirmed Interests:
%s

## Discovered Connections:
%s

Write a warm, specific analysis of this person's taste in 2-4 short paragraphs.

**Rules**:
- Plain prose only. No JSON, no markdown headers, no bullet lists.
- Reference at least two concrete entities from the profile by name.
- Name the thread that connects their interests across domains, if one exists.
- End with one sentence suggesting what they might explore next.
- Never mention that this was generated, the data sources, or the analysis process itself.`,
		vars.Name,
		vars.ProfileSummary,
		vars.Discoveries,
	)
}
