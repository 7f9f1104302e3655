package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CardField is one labelled value on a card sheet.
type CardField struct {
	Label string
	Value string
}

// CardPDF renders record card sheets, such as a printable driving-license
// summary.
type CardPDF struct{}

// NewCardPDF constructs a card renderer.
func NewCardPDF() *CardPDF {
	return &CardPDF{}
}

// Render produces an A4 sheet with a title and a two-column field list.
func (e *CardPDF) Render(title string, fields []CardField) ([]byte, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("card requires at least one field")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	const labelWidth, valueWidth = 60.0, 120.0
	for _, field := range fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(labelWidth, 8, field.Label, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(valueWidth, 8, field.Value, "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render card pdf: %w", err)
	}
	return buf.Bytes(), nil
}
