package schema

import (
	"reflect"
	"testing"
)

func TestDetailedCitation_Full(t *testing.T) {
	res := &SearchResult{Document: &Document{
		Metadata: map[string]interface{}{
			MetadataKeyDocumentType: "Regulation",
			MetadataKeyDocumentName: "LBO Baden-Wuerttemberg",
			MetadataKeyPageNumber:   float64(12),
			MetadataKeySections:     []interface{}{"§ 5", "§ 6", "§ 7", "§ 8"},
			MetadataKeyFormNumbers:  []string{"F-100", "F-101", "F-102"},
			MetadataKeyOfficialIDs:  []string{"ID-1"},
		},
	}}

	want := "Regulation: LBO Baden-Wuerttemberg | Page 12 | Section(s): § 5, § 6, § 7 | Form(s): F-100, F-101 | ID(s): ID-1"
	if got := res.DetailedCitation(); got != want {
		t.Errorf("DetailedCitation() = %q, want %q", got, want)
	}
}

func TestDetailedCitation_Defaults(t *testing.T) {
	res := &SearchResult{Document: &Document{}}
	if got := res.DetailedCitation(); got != "Document: Unknown" {
		t.Errorf("DetailedCitation() = %q, want Document: Unknown", got)
	}
}

func TestMentionedDistrictsAndRules(t *testing.T) {
	// Shaped like JSON-decoded metadata from the embedding cache.
	res := &SearchResult{Document: &Document{
		Metadata: map[string]interface{}{
			MetadataKeyDistrictSpecific: map[string]interface{}{
				"mentioned_districts": []interface{}{"Stuttgart-Mitte", "Vaihingen"},
				"specific_rules": []interface{}{
					map[string]interface{}{"district": "Stuttgart-Mitte", "rule": "max height 22m"},
				},
			},
		},
	}}

	if got := res.MentionedDistricts(); !reflect.DeepEqual(got, []string{"Stuttgart-Mitte", "Vaihingen"}) {
		t.Errorf("MentionedDistricts() = %v", got)
	}

	rules := res.DistrictRules()
	if len(rules) != 1 || rules[0].District != "Stuttgart-Mitte" || rules[0].Rule != "max height 22m" {
		t.Errorf("DistrictRules() = %+v", rules)
	}
}

func TestMentionedDistricts_NoMetadata(t *testing.T) {
	res := &SearchResult{Document: &Document{}}
	if got := res.MentionedDistricts(); len(got) != 0 {
		t.Errorf("MentionedDistricts() = %v, want empty", got)
	}
	if got := res.DistrictRules(); got != nil {
		t.Errorf("DistrictRules() = %v, want nil", got)
	}
}
