// =============================================================================
// Sales Import - Transformation Engine
// =============================================================================
//
// Applies configured clean-up actions to mapped values before validation.
//
// TRANSFORMATION TYPES:
//   - String manipulations (trim, case conversion, prepend, append)
//   - Replacements (literal and regular expression)
//   - Lookup table replacements, with or without a default
//   - Empty-value fallbacks (constant or another field)
//   - Character filters (digits only, alphanumerics only, collapsed whitespace)
//   - Zero padding to a fixed length
//
// SCOPE:
//   Actions apply to text values and to fields that are absent or empty.
//   Numeric and boolean cells read from workbooks are passed through as-is.
//
// =============================================================================

package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
)

// Action types.
const (
	ActionTrim                = "trim"
	ActionUppercase           = "uppercase"
	ActionLowercase           = "lowercase"
	ActionTitleCase           = "title_case"
	ActionPrependString       = "prepend_string"
	ActionAppendString        = "append_string"
	ActionReplace             = "replace"
	ActionRegexReplace        = "regex_replace"
	ActionLookup              = "lookup"
	ActionLookupWithDefault   = "lookup_with_default"
	ActionIfEmptyUseDefault   = "if_empty_use_default"
	ActionIfEmptyUseField     = "if_empty_use_field"
	ActionExtractDigits       = "extract_digits"
	ActionNormalizeWhitespace = "normalize_whitespace"
	ActionRemoveSpecialChars  = "remove_special_chars"
	ActionPadZerosToLength    = "pad_zeros_to_length"
)

var (
	digitsRegex     = regexp.MustCompile(`\d+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	specialRegex    = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// step is a validated action ready to run.
type step struct {
	action config.TransformationAction
	re     *regexp.Regexp
}

type rule struct {
	field string
	steps []step
}

// Transformer applies transformation rules to parsed rows.
type Transformer struct {
	rules []rule
}

// New validates rules and returns a Transformer. Unknown action types and
// invalid regular expressions are rejected here rather than per row.
func New(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{rules: make([]rule, 0, len(rules))}

	for _, r := range rules {
		field := strings.TrimSpace(r.Field)
		if field == "" {
			return nil, fmt.Errorf("transformation rule has no field")
		}

		compiled := rule{field: field}
		for _, action := range r.Actions {
			s := step{action: action}

			switch action.Type {
			case ActionTrim, ActionUppercase, ActionLowercase, ActionTitleCase,
				ActionPrependString, ActionAppendString, ActionReplace,
				ActionLookup, ActionLookupWithDefault,
				ActionIfEmptyUseDefault, ActionIfEmptyUseField,
				ActionExtractDigits, ActionNormalizeWhitespace,
				ActionRemoveSpecialChars:
			case ActionPadZerosToLength:
				if n, err := strconv.Atoi(action.Value); err != nil || n <= 0 {
					return nil, fmt.Errorf("field %s: %s needs a positive length, got %q", field, action.Type, action.Value)
				}
			case ActionRegexReplace:
				if action.Find != "" {
					re, err := regexp.Compile(action.Find)
					if err != nil {
						return nil, fmt.Errorf("field %s: invalid regex pattern %q: %w", field, action.Find, err)
					}
					s.re = re
				}
			default:
				return nil, fmt.Errorf("field %s: unknown transformation type: %s", field, action.Type)
			}

			compiled.steps = append(compiled.steps, s)
		}

		t.rules = append(t.rules, compiled)
	}

	return t, nil
}

// Empty reports whether there is nothing to apply.
func (t *Transformer) Empty() bool {
	return t == nil || len(t.rules) == 0
}

// TransformRow returns a copy of row with every rule applied, in
// configuration order. Later rules see the results of earlier ones.
func (t *Transformer) TransformRow(row spreadsheet.ParsedRow) spreadsheet.ParsedRow {
	out := make(spreadsheet.ParsedRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	if t.Empty() {
		return out
	}

	for _, r := range t.rules {
		current, present := out[r.field]

		var value string
		switch v := current.(type) {
		case nil:
		case string:
			value = v
		default:
			continue
		}

		for _, s := range r.steps {
			value = apply(value, s, out)
		}

		if value == "" && !present {
			continue
		}
		out[r.field] = value
	}

	return out
}

// TransformRows applies TransformRow to every row.
func (t *Transformer) TransformRows(rows []spreadsheet.ParsedRow) []spreadsheet.ParsedRow {
	out := make([]spreadsheet.ParsedRow, len(rows))
	for i, row := range rows {
		out[i] = t.TransformRow(row)
	}
	return out
}

// applyAction runs a single action on value. Unknown action types return
// the value unchanged.
func applyAction(value string, action config.TransformationAction, row spreadsheet.ParsedRow) string {
	s := step{action: action}
	if action.Type == ActionRegexReplace && action.Find != "" {
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return value
		}
		s.re = re
	}
	return apply(value, s, row)
}

func apply(value string, s step, row spreadsheet.ParsedRow) string {
	action := s.action

	switch action.Type {
	case ActionTrim:
		return strings.TrimSpace(value)

	case ActionUppercase:
		return strings.ToUpper(value)

	case ActionLowercase:
		return strings.ToLower(value)

	case ActionTitleCase:
		// A Caser is stateful, so one is made per call.
		return cases.Title(language.English).String(strings.ToLower(value))

	case ActionPrependString:
		return action.Value + value

	case ActionAppendString:
		return value + action.Value

	case ActionReplace:
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case ActionRegexReplace:
		if s.re == nil {
			return value
		}
		return s.re.ReplaceAllString(value, action.Value)

	case ActionLookup:
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement
		}
		return value

	case ActionLookupWithDefault:
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement
		}
		return action.Value

	case ActionIfEmptyUseDefault:
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value

	case ActionIfEmptyUseField:
		if strings.TrimSpace(value) == "" {
			return text(row[action.Value])
		}
		return value

	case ActionExtractDigits:
		return strings.Join(digitsRegex.FindAllString(value, -1), "")

	case ActionNormalizeWhitespace:
		return strings.TrimSpace(whitespaceRegex.ReplaceAllString(value, " "))

	case ActionRemoveSpecialChars:
		return specialRegex.ReplaceAllString(value, "")

	case ActionPadZerosToLength:
		// An invalid length pads nothing.
		n, _ := strconv.Atoi(action.Value)
		if pad := n - utf8.RuneCountInString(value); pad > 0 {
			return strings.Repeat("0", pad) + value
		}
		return value

	default:
		return value
	}
}

// text renders another field's value for if_empty_use_field.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
