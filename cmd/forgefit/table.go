package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one output column; flag columns are centred.
type column struct {
	title string
	flag  bool
}

var (
	channelColumns = []column{
		{title: "Channel"},
		{title: "Attempted", flag: true},
		{title: "Sent", flag: true},
		{title: "Detail"},
	}
	notificationColumns = []column{
		{title: "ID"},
		{title: "Created"},
		{title: "Email", flag: true},
		{title: "SMS", flag: true},
		{title: "Sent At"},
		{title: "Message"},
	}
	profileColumns = []column{
		{title: "User"},
		{title: "Email"},
		{title: "Phone"},
	}
)

// renderTable lays rows out under cols. Missing or empty cells render as "-".
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(cols))
	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		header = append(header, c.title)
		align := text.AlignLeft
		if c.flag {
			align = text.AlignCenter
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: align})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			r[i] = "-"
			if i < len(row) && row[i] != "" {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
