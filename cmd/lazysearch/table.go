package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// renderTable prints rows under header as a console table
func renderTable(w io.Writer, header []string, rows [][]string) {
	consoleTable := tablewriter.NewWriter(w)
	consoleTable.SetHeader(header)
	consoleTable.SetAutoFormatHeaders(false)
	consoleTable.SetAutoWrapText(false)
	consoleTable.AppendBulk(rows)
	consoleTable.Render()
}
