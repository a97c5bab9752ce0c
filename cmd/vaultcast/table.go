package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// Widths for free-text columns. IDs stay unbounded so they can be copied.
const (
	titleWidth  = 40
	originWidth = 48
)

// column describes one table column. A positive width caps the cell and marks
// the cut with an ellipsis.
type column struct {
	header string
	align  columnAlignment
	width  int
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		config := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if col.align == alignRight {
			config.Align = text.AlignRight
		}
		if col.width > 0 {
			config.WidthMax = col.width
			config.WidthMaxEnforcer = ellipsize
		}
		configs[i] = config
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// ellipsize trims value to maxLen display columns, ending in "..." when cut.
func ellipsize(value string, maxLen int) string {
	if maxLen <= 0 || text.RuneWidthWithoutEscSequences(value) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return text.Trim(value, maxLen)
	}
	return text.Trim(value, maxLen-3) + "..."
}
