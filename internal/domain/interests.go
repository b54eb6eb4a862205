package domain

import "strings"

// RawInterests is the immutable onboarding artifact: free-text interest
// entries grouped into fixed buckets plus demographic fields. It is persisted
// once when onboarding completes and never mutated by the pipeline.
type RawInterests struct {
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Gender   string   `json:"gender"`
	Location string   `json:"location,omitempty"`
	Music    []string `json:"music"`
	Podcasts []string `json:"podcasts"`
	Media    []string `json:"media"`
	Other    []string `json:"other"`
}

// Entries flattens the category buckets into a single trimmed list,
// dropping blanks.
func (r *RawInterests) Entries() []string {
	groups := [][]string{r.Music, r.Podcasts, r.Media, r.Other}
	out := make([]string, 0)
	for _, group := range groups {
		for _, entry := range group {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// AgeBand is the fixed demographic bucketing understood by the signal source.
type AgeBand string

const (
	AgeBand18To24 AgeBand = "18_24"
	AgeBand25To34 AgeBand = "25_34"
	AgeBand35To44 AgeBand = "35_44"
	AgeBand45To54 AgeBand = "45_54"
	AgeBand55Plus AgeBand = "55_plus"
)

// BucketAge maps a raw age to its band. Ages under 18 share the lowest band.
func BucketAge(age int) AgeBand {
	switch {
	case age < 25:
		return AgeBand18To24
	case age < 35:
		return AgeBand25To34
	case age < 45:
		return AgeBand35To44
	case age < 55:
		return AgeBand45To54
	default:
		return AgeBand55Plus
	}
}

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// NormalizeGender folds free-text gender input into the enumerated set.
func NormalizeGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Demographics carries the normalized demographic signal.
type Demographics struct {
	AgeBand  AgeBand `json:"age_band"`
	Gender   Gender  `json:"gender"`
	Location string  `json:"location,omitempty"`
}

// EntityQuery is one classified interest ready for resolution.
type EntityQuery struct {
	Query    string         `json:"query"`
	Category EntityCategory `json:"category"`
}

// NormalizedInput is the output of the parse stage. It lives for a single
// pipeline run and is never persisted on its own.
type NormalizedInput struct {
	Queries      []EntityQuery `json:"queries"`
	Demographics Demographics  `json:"demographics"`
}
