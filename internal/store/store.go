package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TimurManjosov/packgenie/internal/rules"
)

// Defaults applied to new catalogues and packs.
const (
	DefaultSchemaVersion = "1.0.0"
	DefaultCurrency      = "GBP"
	DefaultRateRef       = "engineer_standard"

	cloneSuffix = "_copy"
)

var (
	// ErrPackNotFound is returned when no pack has the requested id.
	ErrPackNotFound = errors.New("pack not found")
	// ErrPackExists is returned when a clone would overwrite an existing pack.
	ErrPackExists = errors.New("pack already exists")
	// ErrInvalidPackFile is returned when stored catalogue data cannot be decoded.
	ErrInvalidPackFile = errors.New("invalid pack file")
)

// Store defines the interface for pack catalogue persistence.
// Implementations must be thread-safe. Concurrent writers follow
// last-write-wins semantics.
type Store interface {
	// ListPacks returns all packs in catalogue order.
	// Returns an empty slice if the catalogue is empty.
	ListPacks(ctx context.Context) ([]Pack, error)

	// GetPack retrieves a single pack by id.
	// Returns ErrPackNotFound if it does not exist.
	GetPack(ctx context.Context, id string) (*Pack, error)

	// UpsertPack replaces the pack with the same id in place, or appends it.
	UpsertPack(ctx context.Context, pack Pack) error

	// DeletePack removes a pack by id.
	// Returns no error if the pack doesn't exist (idempotent).
	DeletePack(ctx context.Context, id string) error

	// ClonePack appends a deep copy of the pack with id "<id>_copy".
	ClonePack(ctx context.Context, id string) (*Pack, error)

	// Export returns the whole catalogue including its meta block.
	Export(ctx context.Context) (PackFile, error)

	// Import replaces the whole catalogue. Callers validate the file first.
	Import(ctx context.Context, file PackFile) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Labour describes the fitting time a pack carries.
type Labour struct {
	Hours   float64 `json:"hours" yaml:"hours"`
	RateRef string  `json:"rateRef" yaml:"rateRef"`
}

// Material is one priced line item in a pack.
type Material struct {
	Code      string  `json:"code" yaml:"code"`
	Name      string  `json:"name" yaml:"name"`
	UnitCost  float64 `json:"unit_cost" yaml:"unit_cost"`
	UnitPrice float64 `json:"unit_price" yaml:"unit_price"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
}

// Pack is a named, priced bundle of labour and materials with rules that
// decide whether it applies to a job.
type Pack struct {
	ID                  string        `json:"id" yaml:"id"`
	Type                string        `json:"type" yaml:"type"`
	Brand               string        `json:"brand" yaml:"brand"`
	Model               string        `json:"model" yaml:"model"`
	Title               string        `json:"title" yaml:"title"`
	DescriptionEngineer string        `json:"description_engineer,omitempty" yaml:"description_engineer,omitempty"`
	DescriptionCustomer string        `json:"description_customer,omitempty" yaml:"description_customer,omitempty"`
	Labour              Labour        `json:"labour" yaml:"labour"`
	Materials           []Material    `json:"materials" yaml:"materials"`
	Subpacks            []string      `json:"subpacks" yaml:"subpacks"`
	Rules               rules.RuleSet `json:"rules" yaml:"rules"`
	Enabled             bool          `json:"enabled" yaml:"enabled"`
}

// DisplayTitle renders "model – title" when a model is set.
func (p Pack) DisplayTitle() string {
	if p.Model != "" {
		return p.Model + " – " + p.Title
	}
	return p.Title
}

// Meta is the catalogue header.
type Meta struct {
	SchemaVersion string `json:"schemaVersion" yaml:"schemaVersion"`
	Currency      string `json:"currency" yaml:"currency"`
}

// PackFile is the persisted catalogue: a meta block and packs in order.
type PackFile struct {
	Meta  Meta   `json:"meta" yaml:"meta"`
	Packs []Pack `json:"packs" yaml:"packs"`
}

// NewPackFile returns an empty catalogue with default meta.
func NewPackFile() PackFile {
	return PackFile{
		Meta:  Meta{SchemaVersion: DefaultSchemaVersion, Currency: DefaultCurrency},
		Packs: []Pack{},
	}
}

// Normalize fills defaults the pack editor would apply on save.
func (p *Pack) Normalize() {
	if p.Labour.RateRef == "" {
		p.Labour.RateRef = DefaultRateRef
	}
	if p.Materials == nil {
		p.Materials = []Material{}
	}
	if p.Subpacks == nil {
		p.Subpacks = []string{}
	}
	p.Rules = ensureRulesInitialized(p.Rules)
}

// ensureRulesInitialized keeps empty clauses as [] rather than null in JSON.
func ensureRulesInitialized(rs rules.RuleSet) rules.RuleSet {
	if rs.IncludeIf == nil {
		rs.IncludeIf = []rules.Condition{}
	}
	if rs.ExcludeIf == nil {
		rs.ExcludeIf = []rules.Condition{}
	}
	return rs
}

// ensureMeta fills a partially specified meta block with defaults.
func ensureMeta(m Meta) Meta {
	if m.SchemaVersion == "" {
		m.SchemaVersion = DefaultSchemaVersion
	}
	if m.Currency == "" {
		m.Currency = DefaultCurrency
	}
	return m
}

// copyPack deep-copies a pack through JSON so the copy shares no slices or
// maps with the original.
func copyPack(p Pack) (Pack, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Pack{}, fmt.Errorf("copy pack %q: %w", p.ID, err)
	}
	var out Pack
	if err := json.Unmarshal(raw, &out); err != nil {
		return Pack{}, fmt.Errorf("copy pack %q: %w", p.ID, err)
	}
	return out, nil
}

// cloneOf builds the clone of src, or reports why it cannot be added.
func cloneOf(src Pack, exists func(id string) bool) (Pack, error) {
	clone, err := copyPack(src)
	if err != nil {
		return Pack{}, err
	}
	clone.ID = src.ID + cloneSuffix
	if exists(clone.ID) {
		return Pack{}, fmt.Errorf("%w: %s", ErrPackExists, clone.ID)
	}
	return clone, nil
}

// decodePackFile parses catalogue JSON and applies defaults.
func decodePackFile(raw []byte) (PackFile, error) {
	var file PackFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return PackFile{}, fmt.Errorf("%w: %v", ErrInvalidPackFile, err)
	}
	file.Meta = ensureMeta(file.Meta)
	if file.Packs == nil {
		file.Packs = []Pack{}
	}
	return file, nil
}
