package domain

// Entity is a cultural-graph node returned by the signal source. Identity is
// the opaque ID: two entities are the same iff their IDs match.
type Entity struct {
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	Description      string   `json:"description,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Popularity       float64  `json:"popularity,omitempty"`
	ImageURL         string   `json:"image_url,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// ResolvedEntity pairs an input query with its best match. Resolved is nil
// when the lookup failed or returned nothing; that is not an error state,
// the entry is simply excluded from downstream signal sets while remaining
// visible in the final result.
type ResolvedEntity struct {
	Input        EntityQuery `json:"input"`
	Resolved     *Entity     `json:"resolved,omitempty"`
	Alternatives []Entity    `json:"alternatives,omitempty"`
	Err          string      `json:"error,omitempty"`
}

// IsResolved reports whether the lookup produced a usable entity.
func (r *ResolvedEntity) IsResolved() bool {
	return r.Resolved != nil && r.Resolved.ID != ""
}

// ResolvedByCategory groups successfully resolved entities by their input
// category, preserving input order within each group.
func ResolvedByCategory(resolved []ResolvedEntity) map[EntityCategory][]Entity {
	out := make(map[EntityCategory][]Entity)
	for _, r := range resolved {
		if r.IsResolved() {
			out[r.Input.Category] = append(out[r.Input.Category], *r.Resolved)
		}
	}
	return out
}
