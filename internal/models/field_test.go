package models

import (
	"encoding/json"
	"testing"
)

func TestField_Unmarshal(t *testing.T) {
	t.Parallel()

	type patch struct {
		Title       Field[string]  `json:"title"`
		DueDate     Field[string]  `json:"due_date"`
		Estimated   Field[float64] `json:"estimated_hours"`
	}

	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValid bool
		wantValue string
	}{
		{"absent key", `{}`, false, false, ""},
		{"explicit null", `{"title": null}`, true, false, ""},
		{"value", `{"title": "Write report"}`, true, true, "Write report"},
		{"empty string is a value", `{"title": ""}`, true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var p patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if p.Title.Set != tt.wantSet {
				t.Errorf("Set = %v, expected %v", p.Title.Set, tt.wantSet)
			}
			if p.Title.Valid != tt.wantValid {
				t.Errorf("Valid = %v, expected %v", p.Title.Valid, tt.wantValid)
			}
			if p.Title.Value != tt.wantValue {
				t.Errorf("Value = %q, expected %q", p.Title.Value, tt.wantValue)
			}
		})
	}
}

func TestField_UnmarshalTypeMismatch(t *testing.T) {
	t.Parallel()

	var p struct {
		Hours Field[float64] `json:"hours"`
	}
	if err := json.Unmarshal([]byte(`{"hours": "three"}`), &p); err == nil {
		t.Fatal("expected error for type mismatch")
	}
}

func TestField_Ptr(t *testing.T) {
	t.Parallel()

	absent := Field[int]{}
	if absent.Ptr() != nil {
		t.Error("absent field should yield nil pointer")
	}

	null := Field[int]{Set: true}
	if null.Ptr() != nil {
		t.Error("null field should yield nil pointer")
	}

	set := Field[int]{Set: true, Valid: true, Value: 7}
	if p := set.Ptr(); p == nil || *p != 7 {
		t.Errorf("Ptr() = %v, expected 7", p)
	}
}
