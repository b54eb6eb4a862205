package signal

import (
	"fmt"

	"github.com/arim/tastemap-go/internal/domain"
)

// The cultural-graph API is schema-fuzzy: optional properties come and go
// between entity types. Everything crossing the boundary goes through these
// wire types and is converted to strict domain values, failing closed on
// shape mismatch.

type wireImage struct {
	URL string `json:"url"`
}

type wireProperties struct {
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	Image            wireImage `json:"image"`
}

type wireTag struct {
	Name  string `json:"name"`
	TagID string `json:"tag_id"`
}

type wireEntity struct {
	Name       string         `json:"name"`
	EntityID   string         `json:"entity_id"`
	Popularity float64        `json:"popularity"`
	Properties wireProperties `json:"properties"`
	Tags       []wireTag      `json:"tags"`
}

type searchResponse struct {
	Results []wireEntity `json:"results"`
}

type insightsResponse struct {
	Results struct {
		Entities []wireEntity `json:"entities"`
	} `json:"results"`
}

// toDomain validates and converts a wire entity. Entities without a stable
// ID or name are unusable as signal and are rejected.
func (w *wireEntity) toDomain() (*domain.Entity, error) {
	if w.EntityID == "" {
		return nil, fmt.Errorf("entity missing id")
	}
	if w.Name == "" {
		return nil, fmt.Errorf("entity %s missing name", w.EntityID)
	}

	tags := make([]string, 0, len(w.Tags))
	for _, tag := range w.Tags {
		if tag.Name != "" {
			tags = append(tags, tag.Name)
		}
	}

	return &domain.Entity{
		Name:             w.Name,
		ID:               w.EntityID,
		Description:      w.Properties.Description,
		ShortDescription: w.Properties.ShortDescription,
		Popularity:       w.Popularity,
		ImageURL:         w.Properties.Image.URL,
		Tags:             tags,
	}, nil
}

// parseEntities converts a wire list, silently dropping malformed entries.
// A response where every entry is malformed is treated as empty, not as an
// error; callers decide what absence means.
func parseEntities(wire []wireEntity) []domain.Entity {
	out := make([]domain.Entity, 0, len(wire))
	for i := range wire {
		entity, err := wire[i].toDomain()
		if err != nil {
			continue
		}
		out = append(out, *entity)
	}
	return out
}

// categoryURN maps a category to the API's entity type identifier.
func categoryURN(c domain.EntityCategory) string {
	return "urn:entity:" + string(c)
}
