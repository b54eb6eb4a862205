package domain

// DomainExpansion holds "entities people with this input also engage with"
// for one category, in signal-source relevance order.
type DomainExpansion struct {
	Category EntityCategory `json:"category"`
	Entities []Entity       `json:"entities"`
}

// DomainPairing is a proposed cross-domain exploration produced by the
// strategist. SourceEntityIDs may reference entities that did not survive
// resolution; callers must filter before execution.
type DomainPairing struct {
	SourceCategory  EntityCategory `json:"source_category"`
	TargetCategory  EntityCategory `json:"target_category"`
	Reasoning       string         `json:"reasoning"`
	SourceEntityIDs []string       `json:"source_entity_ids"`
}

// CrossDomainInsight is the outcome of executing one pairing against the
// signal source.
type CrossDomainInsight struct {
	Pairing DomainPairing               `json:"pairing"`
	Results map[EntityCategory][]Entity `json:"results"`
}

// TasteProfileResult is the terminal artifact of a profiling run. It is
// persisted 1:1 with the user; a subsequent run replaces it wholesale.
type TasteProfileResult struct {
	PrimaryEntities     []ResolvedEntity     `json:"primary_entities"`
	DomainExpansions    []DomainExpansion    `json:"domain_expansions"`
	CrossDomainInsights []CrossDomainInsight `json:"cross_domain_insights"`
	FinalAnalysis       string               `json:"final_analysis"`
}

// PrimaryResolved returns the successfully resolved primary entities.
func (t *TasteProfileResult) PrimaryResolved() []Entity {
	out := make([]Entity, 0, len(t.PrimaryEntities))
	for _, r := range t.PrimaryEntities {
		if r.IsResolved() {
			out = append(out, *r.Resolved)
		}
	}
	return out
}
