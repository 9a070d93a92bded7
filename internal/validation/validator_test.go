package validation

import (
	"strings"
	"testing"

	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/store"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		wantValid   bool
		wantMessage string
	}{
		{
			name:      "valid alphanumeric",
			id:        "combi_swap_30",
			wantValid: true,
		},
		{
			name:      "valid with hyphen",
			id:        "combi-swap",
			wantValid: true,
		},
		{
			name:        "empty id",
			id:          "",
			wantValid:   false,
			wantMessage: "ID is required",
		},
		{
			name:        "whitespace only",
			id:          "   ",
			wantValid:   false,
			wantMessage: "ID is required",
		},
		{
			name:        "too long",
			id:          strings.Repeat("a", 65),
			wantValid:   false,
			wantMessage: "ID must not exceed 64 characters",
		},
		{
			name:      "exactly 64 chars",
			id:        strings.Repeat("a", 64),
			wantValid: true,
		},
		{
			name:        "contains spaces",
			id:          "combi swap",
			wantValid:   false,
			wantMessage: "ID must contain only alphanumeric characters, underscores, and hyphens",
		},
		{
			name:        "contains period",
			id:          "combi.swap",
			wantValid:   false,
			wantMessage: "ID must contain only alphanumeric characters, underscores, and hyphens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateID(tt.id)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateID(%q) valid = %v, want %v", tt.id, result.Valid, tt.wantValid)
			}
			if !tt.wantValid && result.Errors["id"] != tt.wantMessage {
				t.Errorf("ValidateID(%q) message = %q, want %q", tt.id, result.Errors["id"], tt.wantMessage)
			}
		})
	}
}

func validPack() store.Pack {
	return store.Pack{
		ID:     "combi_swap",
		Type:   "boiler",
		Title:  "Combi swap",
		Labour: store.Labour{Hours: 6},
		Materials: []store.Material{
			{Code: "FLUE", Name: "Flue", Quantity: 1},
		},
	}
}

func TestValidatePack(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *store.Pack)
		wantValid bool
		wantField string
	}{
		{
			name:      "valid pack",
			mutate:    func(p *store.Pack) {},
			wantValid: true,
		},
		{
			name:      "missing type",
			mutate:    func(p *store.Pack) { p.Type = "" },
			wantField: "type",
		},
		{
			name:      "missing title",
			mutate:    func(p *store.Pack) { p.Title = "  " },
			wantField: "title",
		},
		{
			name:      "missing id",
			mutate:    func(p *store.Pack) { p.ID = "" },
			wantField: "id",
		},
		{
			name:      "negative hours",
			mutate:    func(p *store.Pack) { p.Labour.Hours = -1 },
			wantField: "labour.hours",
		},
		{
			name:      "negative quantity",
			mutate:    func(p *store.Pack) { p.Materials[0].Quantity = -2 },
			wantField: "materials[0].quantity",
		},
		{
			name:      "long description",
			mutate:    func(p *store.Pack) { p.DescriptionCustomer = strings.Repeat("x", MaxDescriptionLength+1) },
			wantField: "description_customer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pack := validPack()
			tt.mutate(&pack)
			result := ValidatePack(pack)
			if result.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v (errors: %v)", result.Valid, tt.wantValid, result.Errors)
			}
			if tt.wantField != "" {
				if _, ok := result.Errors[tt.wantField]; !ok {
					t.Errorf("expected error on %q, got %v", tt.wantField, result.Errors)
				}
			}
		})
	}
}

func TestValidatePack_ReportsAllRequiredFields(t *testing.T) {
	result := ValidatePack(store.Pack{})
	for _, field := range []string{"id", "type", "title"} {
		if _, ok := result.Errors[field]; !ok {
			t.Errorf("missing error for %q: %v", field, result.Errors)
		}
	}
}

func TestValidateRules(t *testing.T) {
	rs := rules.RuleSet{
		IncludeIf: []rules.Condition{{Field: "site.bathrooms_count", Operator: rules.OpGreaterThan, Value: 1}},
		ExcludeIf: []rules.Condition{{Field: "system.system_type", Operator: "is", Value: "combi"}},
	}
	result := ValidateRules(rs)
	if result.Valid {
		t.Fatal("expected lint failure for unknown operator")
	}
	if _, ok := result.Errors["rules.exclude_if[0]"]; !ok {
		t.Errorf("expected error keyed rules.exclude_if[0], got %v", result.Errors)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected exactly one error, got %v", result.Errors)
	}
}

func TestValidatePackFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		file := store.PackFile{Packs: []store.Pack{{ID: "a"}, {ID: "b"}}}
		if result := ValidatePackFile(file); !result.Valid {
			t.Errorf("expected valid, got %v", result.Errors)
		}
	})

	t.Run("empty catalogue", func(t *testing.T) {
		file := store.PackFile{Packs: []store.Pack{}}
		if result := ValidatePackFile(file); !result.Valid {
			t.Errorf("expected valid, got %v", result.Errors)
		}
	})

	t.Run("missing packs", func(t *testing.T) {
		result := ValidatePackFile(store.PackFile{})
		if result.Errors["packs"] != "Pack file must contain a packs array" {
			t.Errorf("unexpected errors: %v", result.Errors)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		file := store.PackFile{Packs: []store.Pack{{ID: "a"}, {Title: "no id"}}}
		result := ValidatePackFile(file)
		if _, ok := result.Errors["packs[1].id"]; !ok {
			t.Errorf("expected packs[1].id error, got %v", result.Errors)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		file := store.PackFile{Packs: []store.Pack{{ID: "a"}, {ID: "b"}, {ID: "a"}}}
		result := ValidatePackFile(file)
		msg, ok := result.Errors["packs[2].id"]
		if !ok || !strings.Contains(msg, `"a"`) {
			t.Errorf("expected duplicate error on packs[2].id, got %v", result.Errors)
		}
	})
}

func TestValidatePackFileJSON(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantField string
	}{
		{
			name:      "valid",
			raw:       `{"meta": {"schemaVersion": "1.0.0", "currency": "GBP"}, "packs": [{"id": "a"}]}`,
			wantValid: true,
		},
		{
			name:      "not json",
			raw:       `{"packs": [`,
			wantField: "file",
		},
		{
			name:      "packs missing",
			raw:       `{"meta": {}}`,
			wantField: "packs",
		},
		{
			name:      "packs is an object",
			raw:       `{"packs": {"a": {}}}`,
			wantField: "packs",
		},
		{
			name:      "packs is null",
			raw:       `{"packs": null}`,
			wantField: "packs",
		},
		{
			name:      "duplicate ids",
			raw:       `{"packs": [{"id": "a"}, {"id": "a"}]}`,
			wantField: "packs[1].id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, file := ValidatePackFileJSON([]byte(tt.raw))
			if result.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v (errors: %v)", result.Valid, tt.wantValid, result.Errors)
			}
			if tt.wantValid && file == nil {
				t.Fatal("expected decoded file for a valid input")
			}
			if !tt.wantValid {
				if file != nil {
					t.Error("expected no file for an invalid input")
				}
				if _, ok := result.Errors[tt.wantField]; !ok {
					t.Errorf("expected error on %q, got %v", tt.wantField, result.Errors)
				}
			}
		})
	}
}
