package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// noStateColumn marks a table without a coloured state column.
const noStateColumn = -1

// stateTable is one status table. Cells in stateColumn are coloured by
// stateKind; footer, when set, summarises the rows.
type stateTable struct {
	headers     []string
	rows        [][]string
	stateColumn int
	footer      string
}

// renderTable draws t. Short rows are padded with blanks.
func renderTable(t stateTable, colorize bool) string {
	columns := len(t.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, columns)
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range t.rows {
		r := make(table.Row, columns)
		for i := range columns {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	if t.footer != "" {
		footer := make(table.Row, columns)
		footer[0] = t.footer
		tw.AppendFooter(footer)
	}

	if colorize && t.stateColumn >= 0 && t.stateColumn < columns {
		tw.SetColumnConfigs([]table.ColumnConfig{{
			Number: t.stateColumn + 1,
			Transformer: func(val any) string {
				s := fmt.Sprint(val)
				return paint(true, stateKind(s), s)
			},
		}})
	}

	return tw.Render() + "\n"
}
