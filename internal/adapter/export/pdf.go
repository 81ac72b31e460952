package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

func renderPDF(doc document) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	// core fonts are cp1252, accents in names and cities need translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 7, tr(doc.title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr("Filters: "+doc.filter), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		tableHeader(pdf)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(100, 8, "Generated at "+doc.generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 8)

	if len(doc.rows) == 0 {
		pdf.CellFormat(0, 8, "No trips match the selected filters.", "", 1, "C", false, 0, "")
	}
	for i, r := range doc.rows {
		fill := i%2 == 1
		pdf.SetFillColor(242, 242, 242)
		texts := []string{r.date, r.driver, r.plate, r.route}
		for c, s := range texts {
			pdf.CellFormat(columns[c].width, 6, fit(pdf, tr(s), columns[c].width-2), "1", 0, "L", fill, 0, "")
		}
		for c, n := range r.numbers() {
			pdf.CellFormat(columns[c+len(texts)].width, 6, money(n), "1", 0, "R", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(doc.rows) > 0 {
		t := totals(doc.rows)
		pdf.SetFont("Helvetica", "B", 8)
		var w float64
		for _, c := range columns[:4] {
			w += c.width
		}
		pdf.CellFormat(w, 6, fmt.Sprintf("TOTAL (%d trips)", len(doc.rows)), "1", 0, "L", false, 0, "")
		for c, n := range t.numbers() {
			pdf.CellFormat(columns[c+4].width, 6, money(n), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(31, 78, 121)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8)
}

// fit truncates s to the cell width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
