package memory

import "testing"

func TestRelationFromValues(t *testing.T) {
	rel, ok := relationFromValues("Zoning Specialist", "EXECUTED", "analyze_zoning", "run-1")
	if !ok {
		t.Fatal("expected a valid relation")
	}
	if rel.Source != "Zoning Specialist" || rel.Type != "EXECUTED" || rel.Target != "analyze_zoning" || rel.RunID != "run-1" {
		t.Errorf("relation = %+v", rel)
	}
}

func TestRelationFromValues_SkipsMalformed(t *testing.T) {
	// 图中可能存在名称为 null 的节点，对应的字段值不是字符串。
	cases := []struct {
		name                    string
		source, relType, target interface{}
	}{
		{"nil source", nil, "EXECUTED", "analyze_zoning"},
		{"nil target", "agent", "EXECUTED", nil},
		{"nil type", "agent", nil, "analyze_zoning"},
		{"non-string source", 42, "EXECUTED", "analyze_zoning"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rel, ok := relationFromValues(tc.source, tc.relType, tc.target, "run-1"); ok {
				t.Errorf("expected malformed record to be skipped, got %+v", rel)
			}
		})
	}
}
