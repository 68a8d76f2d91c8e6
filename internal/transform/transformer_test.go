package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
)

func TestApply(t *testing.T) {
	row := spreadsheet.ParsedRow{"city": "Springfield", "zip": 2134.0}

	tests := []struct {
		name   string
		value  string
		action config.TransformationAction
		want   string
	}{
		{"trim", "  a b  ", config.TransformationAction{Type: ActionTrim}, "a b"},
		{"uppercase", "approved", config.TransformationAction{Type: ActionUppercase}, "APPROVED"},
		{"lowercase", "ACME", config.TransformationAction{Type: ActionLowercase}, "acme"},
		{"title case", "mARY anne", config.TransformationAction{Type: ActionTitleCase}, "Mary Anne"},
		{"prepend", "123", config.TransformationAction{Type: ActionPrependString, Value: "V-"}, "V-123"},
		{"append", "123", config.TransformationAction{Type: ActionAppendString, Value: "-00"}, "123-00"},
		{"replace", "a-b-c", config.TransformationAction{Type: ActionReplace, Find: "-", Value: "_"}, "a_b_c"},
		{"replace without find", "a-b", config.TransformationAction{Type: ActionReplace, Value: "_"}, "a-b"},
		{"regex replace", "ABC-123-DEF", config.TransformationAction{Type: ActionRegexReplace, Find: "[A-Z]+", Value: "X"}, "X-123-X"},
		{"lookup hit", "A", config.TransformationAction{Type: ActionLookup, LookupTable: map[string]string{"A": "approved"}}, "approved"},
		{"lookup miss", "Q", config.TransformationAction{Type: ActionLookup, LookupTable: map[string]string{"A": "approved"}}, "Q"},
		{"lookup default", "Q", config.TransformationAction{Type: ActionLookupWithDefault, Value: "pending", LookupTable: map[string]string{"A": "approved"}}, "pending"},
		{"empty default", " ", config.TransformationAction{Type: ActionIfEmptyUseDefault, Value: "N/A"}, "N/A"},
		{"non-empty default", "x", config.TransformationAction{Type: ActionIfEmptyUseDefault, Value: "N/A"}, "x"},
		{"empty use field", "", config.TransformationAction{Type: ActionIfEmptyUseField, Value: "city"}, "Springfield"},
		{"empty use numeric field", "", config.TransformationAction{Type: ActionIfEmptyUseField, Value: "zip"}, "2134"},
		{"extract digits", "(555) 010-2000", config.TransformationAction{Type: ActionExtractDigits}, "5550102000"},
		{"normalize whitespace", "  1   Main \t St ", config.TransformationAction{Type: ActionNormalizeWhitespace}, "1 Main St"},
		{"remove special chars", "A&B Co.", config.TransformationAction{Type: ActionRemoveSpecialChars}, "ABCo"},
		{"pad zeros", "2134", config.TransformationAction{Type: ActionPadZerosToLength, Value: "5"}, "02134"},
		{"pad zeros already long", "123456", config.TransformationAction{Type: ActionPadZerosToLength, Value: "5"}, "123456"},
		{"unknown", "x", config.TransformationAction{Type: "explode"}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyAction(tt.value, tt.action, row))
		})
	}
}

func TestNew_RejectsBadRules(t *testing.T) {
	_, err := New([]config.TransformationRule{{Field: "status", Actions: []config.TransformationAction{{Type: "explode"}}}})
	assert.ErrorContains(t, err, "unknown transformation type")

	_, err = New([]config.TransformationRule{{Field: "status", Actions: []config.TransformationAction{{Type: ActionRegexReplace, Find: "("}}}})
	assert.ErrorContains(t, err, "invalid regex")

	_, err = New([]config.TransformationRule{{Field: "zip", Actions: []config.TransformationAction{{Type: ActionPadZerosToLength, Value: "five"}}}})
	assert.ErrorContains(t, err, "positive length")

	_, err = New([]config.TransformationRule{{Field: " "}})
	assert.Error(t, err)
}

func TestTransformRow(t *testing.T) {
	tr, err := New([]config.TransformationRule{
		{Field: "status", Actions: []config.TransformationAction{
			{Type: ActionTrim},
			{Type: ActionUppercase},
			{Type: ActionLookupWithDefault, Value: "pending", LookupTable: map[string]string{"A": "approved", "D": "declined"}},
		}},
		{Field: "vendor", Actions: []config.TransformationAction{{Type: ActionIfEmptyUseDefault, Value: "House"}}},
		{Field: "notes", Actions: []config.TransformationAction{{Type: ActionTrim}}},
		{Field: "amount", Actions: []config.TransformationAction{{Type: ActionPrependString, Value: "$"}}},
		{Field: "address", Actions: []config.TransformationAction{{Type: ActionIfEmptyUseField, Value: "vendor"}}},
	})
	require.NoError(t, err)
	assert.False(t, tr.Empty())

	in := spreadsheet.ParsedRow{"status": " a ", "amount": 12.5}
	out := tr.TransformRow(in)

	assert.Equal(t, spreadsheet.ParsedRow{
		"status":  "approved",
		"vendor":  "House",
		"amount":  12.5,
		"address": "House",
	}, out)

	// The input row is not modified.
	assert.Equal(t, spreadsheet.ParsedRow{"status": " a ", "amount": 12.5}, in)
}

func TestTransformRows_Empty(t *testing.T) {
	var tr *Transformer
	assert.True(t, tr.Empty())

	rows := []spreadsheet.ParsedRow{{"a": "x"}}
	assert.Equal(t, rows, tr.TransformRows(rows))
}
