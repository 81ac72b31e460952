package export

import (
	"github.com/xuri/excelize/v2"
)

const sheetName = "Trips"

func renderXLSX(doc document) (_ []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
		Border:    borders(),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	moneyFmt := "#,##0.00"
	dataStyle, err := f.NewStyle(&excelize.Style{Border: borders(), CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		Border:       borders(),
		CustomNumFmt: &moneyFmt,
	})
	if err != nil {
		return nil, err
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}
	style := func(row, style int) error {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(columns), row)
		return f.SetCellStyle(sheetName, first, last, style)
	}

	if err := set(1, 1, doc.title); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}
	if err := set(1, 2, "Filters: "+doc.filter); err != nil {
		return nil, err
	}
	if err := set(1, 3, "Generated at "+doc.generated); err != nil {
		return nil, err
	}

	const headerRow = 5
	for i, c := range columns {
		if err := set(i+1, headerRow, c.title); err != nil {
			return nil, err
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, colName, colName, c.width/2.2+4); err != nil {
			return nil, err
		}
	}
	if err := style(headerRow, headerStyle); err != nil {
		return nil, err
	}

	r := headerRow
	for _, d := range doc.rows {
		r++
		values := []any{d.date, d.driver, d.plate, d.route}
		for _, n := range d.numbers() {
			values = append(values, n)
		}
		if err := f.SetSheetRow(sheetName, cellName(1, r), &values); err != nil {
			return nil, err
		}
		if err := style(r, dataStyle); err != nil {
			return nil, err
		}
	}

	r++
	t := totals(doc.rows)
	values := []any{"TOTAL", "", "", ""}
	for _, n := range t.numbers() {
		values = append(values, round(n))
	}
	if err := f.SetSheetRow(sheetName, cellName(1, r), &values); err != nil {
		return nil, err
	}
	if err := style(r, totalStyle); err != nil {
		return nil, err
	}

	if err := f.SetHeaderFooter(sheetName, &excelize.HeaderFooterOptions{
		OddHeader: "&L" + doc.title,
		OddFooter: "&LGenerated at " + doc.generated + "&RPage &P of &N",
	}); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: cellName(1, headerRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
}
