package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

// The profile artifact is persisted as a JSON payload; a stored result must
// come back field-equal.
func TestTasteProfileResultSurvivesStorageEncoding(t *testing.T) {
	original := &TasteProfileResult{
		PrimaryEntities: []ResolvedEntity{
			{
				Input: EntityQuery{Query: "Radiohead", Category: CategoryArtist},
				Resolved: &Entity{
					Name:             "Radiohead",
					ID:               "e1",
					ShortDescription: "English rock band",
					Popularity:       0.98,
					Tags:             []string{"rock", "art rock"},
				},
				Alternatives: []Entity{{Name: "Thom Yorke", ID: "e2"}},
			},
			{
				Input: EntityQuery{Query: "garbage", Category: CategoryMovie},
				Err:   "no match found",
			},
		},
		DomainExpansions: []DomainExpansion{
			{Category: CategoryArtist, Entities: []Entity{{Name: "Portishead", ID: "e3"}}},
		},
		CrossDomainInsights: []CrossDomainInsight{
			{
				Pairing: DomainPairing{
					SourceCategory:  CategoryArtist,
					TargetCategory:  CategoryMovie,
					Reasoning:       "art rock to atmospheric cinema",
					SourceEntityIDs: []string{"e1"},
				},
				Results: map[EntityCategory][]Entity{
					CategoryMovie: {{Name: "Blade Runner 2049", ID: "e4"}},
				},
			},
		},
		FinalAnalysis: "A taste for the layered and atmospheric.",
	}

	payload, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var restored TasteProfileResult
	if err := json.Unmarshal(payload, &restored); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if !reflect.DeepEqual(original, &restored) {
		t.Fatalf("round trip not field-equal:\noriginal: %+v\nrestored: %+v", original, &restored)
	}
}

func TestBucketAge(t *testing.T) {
	cases := map[int]AgeBand{
		17: AgeBand18To24,
		24: AgeBand18To24,
		25: AgeBand25To34,
		40: AgeBand35To44,
		54: AgeBand45To54,
		70: AgeBand55Plus,
	}
	for age, want := range cases {
		if got := BucketAge(age); got != want {
			t.Fatalf("BucketAge(%d) = %s, want %s", age, got, want)
		}
	}
}

func TestEntriesDropsBlanks(t *testing.T) {
	raw := RawInterests{
		Music: []string{" Radiohead ", ""},
		Media: []string{"  "},
		Other: []string{"Dune"},
	}
	entries := raw.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", entries)
	}
	if entries[0] != "Radiohead" || entries[1] != "Dune" {
		t.Fatalf("unexpected entries %v", entries)
	}
}
