// Package validation provides validation rules for packs and pack files.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/store"
)

const (
	// MaxIDLength is the maximum length for pack ids
	MaxIDLength = 64
	// MaxTitleLength is the maximum length for pack titles
	MaxTitleLength = 200
	// MaxDescriptionLength is the maximum length for either pack description
	MaxDescriptionLength = 2000
)

// idPattern matches alphanumeric characters, underscores, and hyphens
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid.
// The first message recorded for a field is kept.
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	if _, exists := v.Errors[field]; exists {
		return
	}
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ValidatePack runs the checks the pack editor applies before saving.
func ValidatePack(pack store.Pack) *ValidationResult {
	result := NewValidationResult()

	result.Merge(ValidateID(pack.ID))

	if strings.TrimSpace(pack.Type) == "" {
		result.AddError("type", "Type is required")
	}

	switch title := strings.TrimSpace(pack.Title); {
	case title == "":
		result.AddError("title", "Title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		result.AddError("title", fmt.Sprintf("Title must not exceed %d characters", MaxTitleLength))
	}

	if utf8.RuneCountInString(pack.DescriptionEngineer) > MaxDescriptionLength {
		result.AddError("description_engineer", fmt.Sprintf("Description must not exceed %d characters", MaxDescriptionLength))
	}
	if utf8.RuneCountInString(pack.DescriptionCustomer) > MaxDescriptionLength {
		result.AddError("description_customer", fmt.Sprintf("Description must not exceed %d characters", MaxDescriptionLength))
	}

	if pack.Labour.Hours < 0 {
		result.AddError("labour.hours", "Labour hours must not be negative")
	}

	for i, m := range pack.Materials {
		if m.Quantity < 0 {
			result.AddError(fmt.Sprintf("materials[%d].quantity", i), "Quantity must not be negative")
		}
	}

	return result
}

// ValidateID validates a pack id
func ValidateID(id string) *ValidationResult {
	result := NewValidationResult()
	id = strings.TrimSpace(id)

	if id == "" {
		result.AddError("id", "ID is required")
		return result
	}

	if utf8.RuneCountInString(id) > MaxIDLength {
		result.AddError("id", "ID must not exceed 64 characters")
		return result
	}

	if !idPattern.MatchString(id) {
		result.AddError("id", "ID must contain only alphanumeric characters, underscores, and hyphens")
		return result
	}

	return result
}

// ValidateRules reports lint issues as field errors keyed by their location,
// e.g. "rules.include_if[0]". Saving does not require a clean result.
func ValidateRules(rs rules.RuleSet) *ValidationResult {
	result := NewValidationResult()
	for _, issue := range rules.Lint(rs) {
		result.AddError(fmt.Sprintf("rules.%s[%d]", issue.Clause, issue.Index), issue.Detail)
	}
	return result
}

// ValidatePackFile applies the import checks: every pack has an id and ids
// are unique.
func ValidatePackFile(file store.PackFile) *ValidationResult {
	result := NewValidationResult()
	if file.Packs == nil {
		result.AddError("packs", "Pack file must contain a packs array")
		return result
	}

	seen := make(map[string]int, len(file.Packs))
	for i, pack := range file.Packs {
		field := fmt.Sprintf("packs[%d].id", i)
		if strings.TrimSpace(pack.ID) == "" {
			result.AddError(field, "Every pack must have an id")
			continue
		}
		if first, dup := seen[pack.ID]; dup {
			result.AddError(field, fmt.Sprintf("Duplicate pack id %q (first used by packs[%d])", pack.ID, first))
			continue
		}
		seen[pack.ID] = i
	}
	return result
}

// ValidatePackFileJSON decodes raw catalogue JSON and validates it. The
// decoded file is only returned when the result is valid.
func ValidatePackFileJSON(raw []byte) (*ValidationResult, *store.PackFile) {
	result := NewValidationResult()

	var shape struct {
		Packs json.RawMessage `json:"packs"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		result.AddError("file", "Pack file must be valid JSON: "+err.Error())
		return result, nil
	}
	if trimmed := bytes.TrimSpace(shape.Packs); len(trimmed) == 0 || trimmed[0] != '[' {
		result.AddError("packs", "Pack file must contain a packs array")
		return result, nil
	}

	var file store.PackFile
	if err := json.Unmarshal(raw, &file); err != nil {
		result.AddError("packs", "Pack file could not be decoded: "+err.Error())
		return result, nil
	}

	result.Merge(ValidatePackFile(file))
	if !result.Valid {
		return result, nil
	}
	return result, &file
}
