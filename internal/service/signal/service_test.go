package signal

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
)

type fakeRequester struct {
	responses map[string][]byte
	err       error
	calls     []string
}

func (f *fakeRequester) DoRequest(_ context.Context, _ string, path string, params url.Values) ([]byte, error) {
	f.calls = append(f.calls, path+"?"+params.Encode())
	if f.err != nil {
		return nil, f.err
	}
	if body, ok := f.responses[path]; ok {
		return body, nil
	}
	return []byte(`{}`), nil
}

func (f *fakeRequester) IsCircuitOpen() bool { return false }

func TestResolveReturnsBestMatchAndAlternatives(t *testing.T) {
	requester := &fakeRequester{
		responses: map[string][]byte{
			"/search": []byte(`{"results":[
				{"name":"Radiohead","entity_id":"e1","popularity":0.98,"properties":{"short_description":"English rock band"},"tags":[{"name":"rock","tag_id":"t1"}]},
				{"name":"Radiohead Tribute","entity_id":"e2"},
				{"name":"Thom Yorke","entity_id":"e3"},
				{"name":"Atoms for Peace","entity_id":"e4"}
			]}`),
		},
	}
	svc := NewService(requester, nil, zap.NewNop())

	best, alternatives, err := svc.Resolve(context.Background(), "Radiohead", domain.CategoryArtist)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if best == nil || best.ID != "e1" {
		t.Fatalf("expected best match e1, got %+v", best)
	}
	if best.Tags[0] != "rock" {
		t.Fatalf("expected tag carried over, got %v", best.Tags)
	}
	if len(alternatives) != 2 {
		t.Fatalf("expected alternatives capped at 2, got %d", len(alternatives))
	}
}

func TestResolveZeroResultsIsAbsenceNotError(t *testing.T) {
	requester := &fakeRequester{
		responses: map[string][]byte{"/search": []byte(`{"results":[]}`)},
	}
	svc := NewService(requester, nil, zap.NewNop())

	best, alternatives, err := svc.Resolve(context.Background(), "zzzzz", domain.CategoryMovie)
	if err != nil {
		t.Fatalf("expected no error for empty result, got %v", err)
	}
	if best != nil || len(alternatives) != 0 {
		t.Fatalf("expected absence, got %+v / %v", best, alternatives)
	}
}

func TestResolveDropsMalformedEntities(t *testing.T) {
	requester := &fakeRequester{
		responses: map[string][]byte{
			"/search": []byte(`{"results":[{"name":"No ID Here"},{"name":"Valid","entity_id":"e9"}]}`),
		},
	}
	svc := NewService(requester, nil, zap.NewNop())

	best, _, err := svc.Resolve(context.Background(), "whatever", domain.CategoryBook)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if best == nil || best.ID != "e9" {
		t.Fatalf("expected malformed entry skipped, got %+v", best)
	}
}

func TestExpandRequiresSignal(t *testing.T) {
	svc := NewService(&fakeRequester{}, nil, zap.NewNop())

	if _, err := svc.Expand(context.Background(), ExpandQuery{Category: domain.CategoryArtist}); err == nil {
		t.Fatalf("expected error for empty entity id list")
	}
}

func TestExpandBuildsInsightsQuery(t *testing.T) {
	requester := &fakeRequester{
		responses: map[string][]byte{
			"/v2/insights": []byte(`{"results":{"entities":[
				{"name":"Portishead","entity_id":"x1"},
				{"name":"Massive Attack","entity_id":"x2"},
				{"name":"Björk","entity_id":"x3"}
			]}}`),
		},
	}
	svc := NewService(requester, nil, zap.NewNop())

	entities, err := svc.Expand(context.Background(), ExpandQuery{
		EntityIDs: []string{"e1"},
		Tags:      []string{"rock"},
		Category:  domain.CategoryArtist,
		Demographics: &domain.Demographics{
			AgeBand: domain.AgeBand25To34,
			Gender:  domain.GenderFemale,
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}

	call := requester.calls[0]
	for _, fragment := range []string{
		"filter.type=urn%3Aentity%3Aartist",
		"signal.interests.entities=e1",
		"signal.interests.tags=rock",
		"signal.demographics.age=25_34",
		"signal.demographics.gender=female",
	} {
		if !strings.Contains(call, fragment) {
			t.Fatalf("expected query to contain %q, got %s", fragment, call)
		}
	}
}

func TestCrossDomainSkipsFailedCategories(t *testing.T) {
	requester := &fakeRequester{
		responses: map[string][]byte{
			"/v2/insights": []byte(`{"results":{"entities":[{"name":"Dune","entity_id":"m1"}]}}`),
		},
	}
	svc := NewService(requester, nil, zap.NewNop())

	results, err := svc.CrossDomain(context.Background(), CrossDomainQuery{
		EntityIDs:        []string{"e1"},
		TargetCategories: []domain.EntityCategory{domain.CategoryMovie, domain.CategoryBook},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results for both categories, got %d", len(results))
	}
	if len(requester.calls) != 2 {
		t.Fatalf("expected one call per target category, got %d", len(requester.calls))
	}
}

func TestCrossDomainAllFailuresPropagates(t *testing.T) {
	requester := &fakeRequester{err: errors.New("upstream down")}
	svc := NewService(requester, nil, zap.NewNop())

	_, err := svc.CrossDomain(context.Background(), CrossDomainQuery{
		EntityIDs:        []string{"e1"},
		TargetCategories: []domain.EntityCategory{domain.CategoryMovie},
	})
	if err == nil {
		t.Fatalf("expected error when every category fails")
	}
}
