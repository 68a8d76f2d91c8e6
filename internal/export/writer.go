// =============================================================================
// Sales Import - Export Writer
// =============================================================================
//
// Writes validated rows for the systems downstream of the import.
//
// FORMATS:
//   json : an array of objects keyed by field key
//   csv  : a header row of field keys, then one record per row
//   xml  : the nesting below
//
//   <invoices count="2">                   <!-- Root element -->
//     <invoice row="1">                    <!-- One element per valid row -->
//       <sale_date>2024-01-05</sale_date>  <!-- Fields in definition order -->
//       <amount>1200.5</amount>
//     </invoice>
//     <invoice row="2">
//       ...
//     </invoice>
//   </invoices>
//
// Fields absent from a row are left out of the xml and json output and
// written as empty cells in csv.
//
// =============================================================================

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/validation"
)

// Format is an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for formats other than json, xml and csv.
var ErrUnknownFormat = errors.New("unknown export format")

// Element names of the xml export.
const (
	RootElement  = "invoices"
	RowElement   = "invoice"
	RowAttribute = "row"
	indent       = "  "
)

// ParseFormat reads a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatXML, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for the format, with its dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// =============================================================================
// WRITE
// =============================================================================

// Write encodes rows to w.
//
// PARAMETERS:
//   - w: The destination.
//   - rows: Validated rows.
//   - defs: Field definitions; they fix the order of xml elements and csv
//     columns.
//   - format: The export format.
//
// RETURNS:
//   - An error if the format is unknown or writing fails.
func Write(w io.Writer, rows []validation.ValidatedRow, defs []fields.Definition, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatXML:
		return writeXML(w, rows, defs)
	case FormatCSV:
		return writeCSV(w, rows, defs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeJSON(w io.Writer, rows []validation.ValidatedRow) error {
	if rows == nil {
		rows = []validation.ValidatedRow{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", indent)
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []validation.ValidatedRow, defs []fields.Definition) error {
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))

	header := make([]string, len(defs))
	for i, def := range defs {
		header[i] = def.Key
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, len(defs))
		for i, def := range defs {
			if v, ok := row[def.Key]; ok {
				record[i] = formatValue(v)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// =============================================================================
// XML GENERATION
// =============================================================================

// element is a node of the xml export: either a value or children.
type element struct {
	name     string
	attrs    []xml.Attr
	value    string
	children []element
}

func buildDocument(rows []validation.ValidatedRow, defs []fields.Definition) element {
	root := element{
		name:  RootElement,
		attrs: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(rows))}},
	}

	for i, row := range rows {
		invoice := element{
			name:  RowElement,
			attrs: []xml.Attr{{Name: xml.Name{Local: RowAttribute}, Value: strconv.Itoa(i + 1)}},
		}
		for _, def := range defs {
			v, ok := row[def.Key]
			if !ok {
				continue
			}
			invoice.children = append(invoice.children, element{name: def.Key, value: formatValue(v)})
		}
		root.children = append(root.children, invoice)
	}

	return root
}

func writeXML(w io.Writer, rows []validation.ValidatedRow, defs []fields.Definition) error {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	writeElement(&buffer, buildDocument(rows, defs), 0)

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	return nil
}

// writeElement writes e and its children, one element per line.
func writeElement(buffer *bytes.Buffer, e element, level int) {
	buffer.WriteString(strings.Repeat(indent, level))
	buffer.WriteString("<")
	buffer.WriteString(e.name)
	for _, attr := range e.attrs {
		buffer.WriteString(" ")
		buffer.WriteString(attr.Name.Local)
		buffer.WriteString(`="`)
		xml.EscapeText(buffer, []byte(attr.Value))
		buffer.WriteString(`"`)
	}

	if len(e.children) == 0 && e.value == "" {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">")

	if len(e.children) == 0 {
		xml.EscapeText(buffer, []byte(e.value))
	} else {
		buffer.WriteString("\n")
		for _, child := range e.children {
			writeElement(buffer, child, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(e.name)
	buffer.WriteString(">\n")
}

// formatValue renders a validated value as text.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(validation.ISODate)
	default:
		return fmt.Sprint(x)
	}
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD describes the xml export of defs. Fields listed in required
// get minOccurs="1".
func GenerateXSD(defs []fields.Definition, required []string) []byte {
	isRequired := make(map[string]bool, len(required))
	for _, key := range required {
		isRequired[key] = true
	}

	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="count" type="xs:nonNegativeInteger" use="required"/>
    </xs:complexType>
  </xs:element>

`, RootElement, RowElement)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, RowElement)

	for _, def := range defs {
		minOccurs := "0"
		if isRequired[def.Key] {
			minOccurs = "1"
		}
		fmt.Fprintf(&buffer, "        <xs:element name=\"%s\" type=\"%s\" minOccurs=\"%s\"/>\n",
			def.Key, xsdType(def.Type), minOccurs)
	}

	fmt.Fprintf(&buffer, `      </xs:sequence>
      <xs:attribute name="%s" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`, RowAttribute)

	return buffer.Bytes()
}

func xsdType(t fields.Type) string {
	switch t {
	case fields.TypeNumber:
		return "xs:decimal"
	case fields.TypeDate:
		return "xs:date"
	default:
		return "xs:string"
	}
}
