// =============================================================================
// Sales Import - Field Definition Registry
// =============================================================================
//
// This package holds the canonical target fields that spreadsheet columns are
// mapped onto. Definitions are fixed at startup: either the built-in defaults
// or a set loaded from an XLSX template (see template.go).
//
// Each definition carries:
//   - Key      : unique identifier used in parsed and validated rows
//   - Label    : display name
//   - Required : required for a batch upload
//   - Aliases  : header strings the fuzzy matcher scores against
//   - Type     : string, number or date
//
// =============================================================================

package fields

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// FIELD TYPES
// =============================================================================

// Type is the value type a field is normalized into.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeDate   Type = "date"
)

// ParseType maps the spellings found in templates and config files onto a Type.
func ParseType(value string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "string", "str", "text":
		return TypeString, nil
	case "number", "numeric", "num", "decimal", "currency", "money":
		return TypeNumber, nil
	case "date":
		return TypeDate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, value)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateKey is returned when two definitions share a key.
	ErrDuplicateKey = errors.New("duplicate field key")

	// ErrEmptyKey is returned when a definition has no key.
	ErrEmptyKey = errors.New("field key is empty")

	// ErrInvalidType is returned for an unknown field type.
	ErrInvalidType = errors.New("invalid field type")
)

// =============================================================================
// DEFINITION
// =============================================================================

// Definition describes one target field.
type Definition struct {
	Key      string   `yaml:"key" json:"key"`
	Label    string   `yaml:"label" json:"label"`
	Required bool     `yaml:"required" json:"required"`
	Aliases  []string `yaml:"aliases" json:"aliases"`
	Type     Type     `yaml:"type" json:"type"`
}

// Standard field keys.
const (
	KeySaleDate  = "sale_date"
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
	KeyStatus    = "status"
	KeyAmount    = "amount"
	KeyAddress   = "address"
	KeyCity      = "city"
	KeyVendor    = "vendor"
	KeyState     = "state"
	KeyZip       = "zip"
	KeyPhone     = "phone"
	KeyEmail     = "email"
	KeyNotes     = "notes"
)

// Defaults returns the built-in definitions used for invoice imports.
// Required marks the batch-mode required set; the validator narrows it for
// single-invoice entry.
func Defaults() []Definition {
	return []Definition{
		{Key: KeySaleDate, Label: "Sale Date", Required: true, Type: TypeDate,
			Aliases: []string{"sale date", "date", "sold date", "date of sale", "transaction date"}},
		{Key: KeyFirstName, Label: "First Name", Required: true, Type: TypeString,
			Aliases: []string{"first name", "first", "fname", "customer first name"}},
		{Key: KeyLastName, Label: "Last Name", Required: true, Type: TypeString,
			Aliases: []string{"last name", "last", "lname", "surname", "customer last name"}},
		{Key: KeyStatus, Label: "Status", Required: true, Type: TypeString,
			Aliases: []string{"status", "sale status", "order status"}},
		{Key: KeyAmount, Label: "Amount", Required: true, Type: TypeNumber,
			Aliases: []string{"amount", "amt", "sale amount", "total", "price"}},
		{Key: KeyAddress, Label: "Address", Required: true, Type: TypeString,
			Aliases: []string{"address", "street", "street address", "address 1"}},
		{Key: KeyCity, Label: "City", Required: true, Type: TypeString,
			Aliases: []string{"city", "town"}},
		{Key: KeyVendor, Label: "Vendor", Required: true, Type: TypeString,
			Aliases: []string{"vendor", "campaign", "client", "vendor name"}},
		{Key: KeyState, Label: "State", Type: TypeString,
			Aliases: []string{"state", "province"}},
		{Key: KeyZip, Label: "Zip", Type: TypeString,
			Aliases: []string{"zip", "zip code", "postal code", "zipcode"}},
		{Key: KeyPhone, Label: "Phone", Type: TypeString,
			Aliases: []string{"phone", "phone number", "telephone", "mobile"}},
		{Key: KeyEmail, Label: "Email", Type: TypeString,
			Aliases: []string{"email", "e-mail", "email address"}},
		{Key: KeyNotes, Label: "Notes", Type: TypeString,
			Aliases: []string{"notes", "note", "comments", "memo"}},
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is an immutable, ordered set of definitions.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry validates the definitions and builds a registry.
//
// Keys must be non-empty and unique. A missing label defaults to the key and
// an empty type defaults to string.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	for i, def := range defs {
		def.Key = strings.TrimSpace(def.Key)
		if def.Key == "" {
			return nil, fmt.Errorf("definition %d: %w", i+1, ErrEmptyKey)
		}
		if _, exists := r.index[def.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, def.Key)
		}

		t, err := ParseType(string(def.Type))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", def.Key, err)
		}
		def.Type = t

		if strings.TrimSpace(def.Label) == "" {
			def.Label = def.Key
		}
		def.Aliases = append([]string(nil), def.Aliases...)

		r.index[def.Key] = len(r.defs)
		r.defs = append(r.defs, def)
	}

	return r, nil
}

// DefaultRegistry returns a registry over Defaults.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(fmt.Sprintf("fields: invalid defaults: %v", err))
	}
	return r
}

// Definitions returns a copy of the definitions in declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	for i, def := range r.defs {
		def.Aliases = append([]string(nil), def.Aliases...)
		out[i] = def
	}
	return out
}

// Lookup returns the definition for key.
func (r *Registry) Lookup(key string) (Definition, bool) {
	i, ok := r.index[key]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Has reports whether key is a registered field.
func (r *Registry) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Keys returns the field keys in declaration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.defs))
	for i, def := range r.defs {
		keys[i] = def.Key
	}
	return keys
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}
