package crew

import (
	"testing"
)

func testSchema() OutputSchema {
	return OutputSchema{
		"compliant":  FieldBool,
		"violations": FieldList,
		"max_floors": FieldNumber,
		"notes":      FieldString,
	}
}

func TestOutputSchema_Validate(t *testing.T) {
	if err := testSchema().Validate(); err != nil {
		t.Errorf("valid schema rejected: %v", err)
	}

	bad := OutputSchema{"field": FieldType("integer")}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unsupported field type")
	}
}

func TestOutputSchema_Fallback(t *testing.T) {
	fallback := testSchema().Fallback()

	if v, ok := fallback["compliant"].(bool); !ok || v {
		t.Errorf("bool fallback = %v, want false", fallback["compliant"])
	}
	if v, ok := fallback["violations"].([]interface{}); !ok || len(v) != 0 {
		t.Errorf("list fallback = %v, want empty list", fallback["violations"])
	}
	if fallback["max_floors"] != 0 {
		t.Errorf("number fallback = %v, want 0", fallback["max_floors"])
	}
	if fallback["notes"] != "" {
		t.Errorf("string fallback = %v, want empty string", fallback["notes"])
	}
}

func TestOutputSchema_Example(t *testing.T) {
	example := testSchema().Example()
	if example["notes"] != "<value>" {
		t.Errorf("string example = %v, want <value>", example["notes"])
	}
	if example["compliant"] != false {
		t.Errorf("bool example = %v, want false", example["compliant"])
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"object with prose", "Here is the result:\n{\"a\": 1}\nHope this helps!", `{"a": 1}`},
		{"fenced object", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"array", "the list is [1, 2, 3] ok", `[1, 2, 3]`},
		{"object wins over array", `x ["b"] {"a": ["b"]} y`, `{"a": ["b"]}`},
		{"no json", "  just text  ", "just text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestOutputSchema_CheckTypes(t *testing.T) {
	schema := testSchema()

	valid := map[string]interface{}{
		"compliant":  true,
		"violations": []interface{}{"too tall"},
		"max_floors": float64(4),
		"notes":      "ok",
	}
	if err := schema.CheckTypes(valid); err != nil {
		t.Errorf("valid data rejected: %v", err)
	}

	missing := map[string]interface{}{
		"compliant":  true,
		"violations": []interface{}{},
		"max_floors": float64(4),
	}
	if err := schema.CheckTypes(missing); err == nil {
		t.Error("expected error for missing field")
	}

	wrongType := map[string]interface{}{
		"compliant":  "yes",
		"violations": []interface{}{},
		"max_floors": float64(4),
		"notes":      "ok",
	}
	if err := schema.CheckTypes(wrongType); err == nil {
		t.Error("expected error for string where bool is declared")
	}
}

func TestOutputSchema_ParseAndValidate(t *testing.T) {
	schema := OutputSchema{"compliant": FieldBool, "violations": FieldList}

	// Model output wrapped in prose and a code fence still parses.
	raw := "Sure! Here you go:\n```json\n{\"compliant\": false, \"violations\": [\"height limit exceeded\"]}\n```"
	out, err := schema.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("ParseAndValidate() error = %v", err)
	}
	if out["compliant"] != false {
		t.Errorf("compliant = %v, want false", out["compliant"])
	}

	if _, err := schema.ParseAndValidate("not json at all"); err == nil {
		t.Error("expected error for non-JSON output")
	}

	if _, err := schema.ParseAndValidate(`{"compliant": true, "violations": "none"}`); err == nil {
		t.Error("expected error for schema violation")
	}
}
