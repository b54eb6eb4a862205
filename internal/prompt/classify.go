package prompt

import (
	"fmt"
	"strings"
)

// ClassifyPromptVars holds variables for the interest classification prompt
type ClassifyPromptVars struct {
	Name       string
	Age        int
	Gender     string
	Location   string
	Interests  []string
	Categories []string
}

// BuildClassifyPrompt builds the prompt that turns free-text onboarding
// answers into categorized entity queries.
func BuildClassifyPrompt(vars ClassifyPromptVars) string {
	var interests strings.Builder
	for _, entry := range vars.Interests {
		interests.WriteString("  - ")
		interests.WriteString(entry)
		interests.WriteString("\n")
	}

	return fmt.Sprintf(`You are an entity extraction engine for a taste-profiling service.
Extract concrete cultural entities from a user's free-text onboarding answers.

## User Context:
- Name: %s
- Age: %d
- Gender: %s
- Location: %s

## Raw Answers:
%s
## Allowed Categories (use EXACTLY these values):
%s

## Response Format (JSON ONLY):
{
  "queries": [
    {"query": "Radiohead", "category": "artist"},
    {"query": "Blade Runner 2049", "category": "movie"}
  ]
}

**Rules**:
- One object per distinct entity. Split comma/and-separated lists into separate entries.
- "query" must be the canonical searchable name, cleaned of filler words ("I really love", "stuff like").
- "category" must be one of the allowed categories. If an item fits none of them, OMIT it entirely.
- Vague statements with no concrete entity ("anything chill", "good vibes") produce NO entry.
- Never invent entities the user did not mention.
- Deduplicate: if the same entity appears twice, emit it once.`,
		vars.Name,
		vars.Age,
		vars.Gender,
		vars.Location,
		interests.String(),
		strings.Join(vars.Categories, ", "),
	)
}
