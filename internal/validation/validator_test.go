package validation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
)

func TestValidateAndFormatDate(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		format  DateFormat
		want    string
		wantErr bool
	}{
		{"serial", 45292.0, DateAuto, "2024-01-01", false},
		{"serial with time", 45292.75, DateUS, "2024-01-01", false},
		{"serial int", 45293, DateISO, "2024-01-02", false},
		{"zero serial", 0.0, DateAuto, "", true},
		{"time value", time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC), DateEU, "2024-02-29", false},
		{"iso", "2024-3-5", DateISO, "2024-03-05", false},
		{"iso auto", " 2024-03-05 ", DateAuto, "2024-03-05", false},
		{"iso invalid day", "2024-02-30", DateISO, "", true},
		{"iso rejected in US mode", "2024-03-05", DateUS, "", true},
		{"us", "3/5/2024", DateUS, "2024-03-05", false},
		{"us rejects day first", "13/05/2024", DateUS, "", true},
		{"eu", "13/05/2024", DateEU, "2024-05-13", false},
		{"eu rejects month 13", "05/13/2024", DateEU, "", true},
		{"auto falls through to eu", "13/05/2024", DateAuto, "2024-05-13", false},
		{"auto ambiguous reads as us", "03/04/2024", DateAuto, "2024-03-04", false},
		{"auto impossible", "31/31/2024", DateAuto, "", true},
		{"auto named month", "Jan 2, 2024", DateAuto, "2024-01-02", false},
		{"auto compact", "20240102", DateAuto, "2024-01-02", false},
		{"auto rfc3339", "2024-01-02T10:00:00Z", DateAuto, "2024-01-02", false},
		{"fallback not used outside auto", "Jan 2, 2024", DateEU, "", true},
		{"empty", "", DateAuto, "", true},
		{"garbage", "soon", DateAuto, "", true},
		{"unsupported type", true, DateAuto, "", true},
		{"empty format is auto", "13/05/2024", "", "2024-05-13", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAndFormatDate(tt.value, tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAndFormatDate_AutoDateTimes(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"2024-01-05 10:30:00", "2024-01-05"},
		{"2024-01-05 10:30", "2024-01-05"},
		{"1/5/2024 10:30", "2024-01-05"},
		{"01/05/2024 10:30:15", "2024-01-05"},
		{"1/5/2024 3:04 PM", "2024-01-05"},
		{"13/05/2024 10:30", "2024-05-13"},
		{"Jan 5 2024", "2024-01-05"},
		{"January 5 2024", "2024-01-05"},
		{"05-Jan-2024", "2024-01-05"},
		{"5-Jan-2024", "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ValidateAndFormatDate(tt.value, DateAuto)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			for _, format := range []DateFormat{DateISO, DateUS, DateEU} {
				_, err := ValidateAndFormatDate(tt.value, format)
				assert.ErrorIs(t, err, ErrInvalidDate, "format %s", format)
			}
		})
	}
}

func TestValidateAndFormatDate_ISORoundTrip(t *testing.T) {
	start := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i += 7 {
		day := start.AddDate(0, 0, i)
		formatted := day.Format(ISODate)

		got, err := ValidateAndFormatDate(formatted, DateISO)
		require.NoError(t, err)
		assert.Equal(t, formatted, got)
	}
}

func TestValidateAndFormatDate_ErrorNamesExpectedFormat(t *testing.T) {
	_, err := ValidateAndFormatDate("13/05/2024", DateUS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MM/DD/YYYY")
}

func TestParseDateFormat(t *testing.T) {
	for in, want := range map[string]DateFormat{"": DateAuto, "AUTO": DateAuto, "us": DateUS, "Iso": DateISO, "EU": DateEU} {
		got, err := ParseDateFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseDateFormat("mayan")
	assert.Error(t, err)
}

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		value   any
		want    float64
		wantErr bool
	}{
		{"$1,234.56", 1234.56, false},
		{"€ 99", 99, false},
		{"£1 000.5", 1000.5, false},
		{"¥500", 500, false},
		{"(12.50)", -12.5, false},
		{"-3", -3, false},
		{42.5, 42.5, false},
		{7, 7, false},
		{"", 0, true},
		{"$", 0, true},
		{"twelve", 0, true},
		{"12.3.4", 0, true},
		{true, 0, true},
	}

	for _, tt := range tests {
		got, err := NormalizeNumber(tt.value)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidNumber, "%v", tt.value)
			continue
		}
		require.NoError(t, err, "%v", tt.value)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.value)
	}
}

func TestParseDecimal_Exact(t *testing.T) {
	d, err := ParseDecimal("$0.10")
	require.NoError(t, err)
	sum := d.Add(decimal.RequireFromString("0.20"))
	assert.True(t, sum.Equal(decimal.RequireFromString("0.30")))
}

func validRow() spreadsheet.ParsedRow {
	return spreadsheet.ParsedRow{
		fields.KeySaleDate:  45292.0,
		fields.KeyFirstName: " Ann ",
		fields.KeyLastName:  "Lee",
		fields.KeyStatus:    "approved",
		fields.KeyAmount:    "$1,234.56",
		fields.KeyAddress:   "1 Main St",
		fields.KeyCity:      "Springfield",
		fields.KeyVendor:    "Acme",
	}
}

func newTestValidator() *Validator {
	return NewValidator(fields.DefaultRegistry(), DateAuto)
}

func TestValidateAndFormatRow_Valid(t *testing.T) {
	row := validRow()
	row[fields.KeyZip] = 2134.0
	row[fields.KeyNotes] = "   "

	result := newTestValidator().ValidateAndFormatRow(row, 2, false)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, ValidatedRow{
		fields.KeySaleDate:  "2024-01-01",
		fields.KeyFirstName: "Ann",
		fields.KeyLastName:  "Lee",
		fields.KeyStatus:    "approved",
		fields.KeyAmount:    1234.56,
		fields.KeyAddress:   "1 Main St",
		fields.KeyCity:      "Springfield",
		fields.KeyVendor:    "Acme",
		fields.KeyZip:       "2134",
	}, result.Formatted)
}

func TestValidateAndFormatRow_SingleModeRelaxesBatchFields(t *testing.T) {
	row := validRow()
	delete(row, fields.KeyAddress)
	delete(row, fields.KeyCity)
	delete(row, fields.KeyVendor)

	v := newTestValidator()
	assert.True(t, v.ValidateAndFormatRow(row, 2, true).Valid)

	batch := v.ValidateAndFormatRow(row, 2, false)
	assert.False(t, batch.Valid)
	assert.Len(t, batch.Errors, 3)
}

func TestValidateAndFormatRow_ErrorsAreIndependentPerField(t *testing.T) {
	row := validRow()
	row[fields.KeyFirstName] = ""
	row[fields.KeyAmount] = "lots"
	row[fields.KeySaleDate] = "31/31/2024"

	result := newTestValidator().ValidateAndFormatRow(row, 7, false)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 3)

	assert.Equal(t, ParseError{Row: 7, Field: fields.KeySaleDate, Value: "31/31/2024",
		Message: "Sale Date must be a date (MM/DD/YYYY, DD/MM/YYYY or YYYY-MM-DD)"}, result.Errors[0])
	assert.Equal(t, ParseError{Row: 7, Field: fields.KeyFirstName, Message: "first_name is required"}, result.Errors[1])
	assert.Equal(t, ParseError{Row: 7, Field: fields.KeyAmount, Value: "lots", Message: "Amount must be a number"}, result.Errors[2])

	// Valid fields on the same row are still formatted.
	assert.Equal(t, "Lee", result.Formatted[fields.KeyLastName])
}

func TestValidateAllRows_BatchMissingVendor(t *testing.T) {
	good := validRow()
	missing := validRow()
	delete(missing, fields.KeyVendor)

	summary := newTestValidator().ValidateAllRows([]spreadsheet.ParsedRow{good, missing}, true)

	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 1, summary.ValidCount)
	assert.Equal(t, 1, summary.InvalidCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, fields.KeyVendor, summary.Errors[0].Field)
	assert.Equal(t, 3, summary.Errors[0].Row)
	assert.Equal(t, "vendor is required", summary.Errors[0].Message)
	require.Len(t, summary.Valid, 1)
	assert.Equal(t, "Acme", summary.Valid[0][fields.KeyVendor])

	single := newTestValidator().ValidateAllRows([]spreadsheet.ParsedRow{good, missing}, false)
	assert.Equal(t, 2, single.ValidCount)
}

func TestValidateAllRows_OnRow(t *testing.T) {
	v := newTestValidator()
	var calls [][2]int
	v.OnRow = func(done, total int) { calls = append(calls, [2]int{done, total}) }

	v.ValidateAllRows([]spreadsheet.ParsedRow{validRow(), validRow()}, false)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestValidateAllRowsContext_Cancelled(t *testing.T) {
	v := newTestValidator()
	ctx, cancel := context.WithCancel(context.Background())
	v.OnRow = func(done, total int) {
		if done == 1 {
			cancel()
		}
	}

	summary, err := v.ValidateAllRowsContext(ctx, []spreadsheet.ParsedRow{validRow(), validRow(), validRow()}, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, summary.TotalRows)
	assert.Len(t, summary.Results, 1)
}

func TestValidateAndFormatRow_CustomRequiredSets(t *testing.T) {
	v := newTestValidator()
	v.CoreRequired = []string{fields.KeyAmount}
	v.BatchRequired = []string{fields.KeyVendor, fields.KeyAddress, fields.KeyCity, fields.KeySaleDate,
		fields.KeyFirstName, fields.KeyLastName, fields.KeyStatus}

	row := spreadsheet.ParsedRow{fields.KeyAmount: 5.0}
	assert.True(t, v.ValidateAndFormatRow(row, 2, true).Valid)
	assert.False(t, v.ValidateAndFormatRow(spreadsheet.ParsedRow{}, 2, true).Valid)
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "row 3, vendor: vendor is required",
		ParseError{Row: 3, Field: "vendor", Message: "vendor is required"}.Error())
	assert.Equal(t, `row 4, amount: Amount must be a number (value: "x")`,
		ParseError{Row: 4, Field: "amount", Value: "x", Message: "Amount must be a number"}.Error())
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil, 0))
	out := FormatErrors([]ParseError{{Row: 2, Field: "amount", Message: "amount is required"}}, 0)
	assert.Contains(t, out, "1 error(s)")
	assert.Contains(t, out, "1. row 2, amount: amount is required")
	assert.NotContains(t, out, "more")
}

func TestFormatErrors_Limit(t *testing.T) {
	errs := []ParseError{
		{Row: 2, Field: "amount", Message: "amount is required"},
		{Row: 3, Field: "vendor", Message: "vendor is required"},
		{Row: 4, Field: "status", Message: "status is required"},
	}

	out := FormatErrors(errs, 2)
	assert.Contains(t, out, "3 error(s)")
	assert.Contains(t, out, "2. row 3, vendor: vendor is required")
	assert.NotContains(t, out, "row 4")
	assert.True(t, strings.HasSuffix(out, "... and 1 more\n"), out)
}
