// Package export writes evaluated chase tasks as an operator workbook.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compliance-chaser/internal/chaser"
	"github.com/sells-group/compliance-chaser/internal/model"
)

// Sheet names in the exported workbook.
const (
	TasksSheet   = "Chase Tasks"
	SummarySheet = "Summary"
)

// TaskHeader is the header row of the tasks sheet.
var TaskHeader = []string{
	"Client", "Client ID", "Item", "Required For", "Target", "Priority", "Channel",
	"Due Date", "Days Overdue", "Status", "Next Status", "Recommended Action",
	"Reason", "Source",
}

// WriteTasksXLSX writes one row per evaluation plus a per-status summary sheet.
func WriteTasksXLSX(w io.Writer, report chaser.Report) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(TasksSheet)
	if err != nil {
		return eris.Wrap(err, "export: add tasks sheet")
	}
	addRow(sheet, TaskHeader)
	for _, ev := range report.Evaluations {
		t := ev.Task
		client := t.ClientName
		if client == "" {
			client = chaser.UnknownClient
		}
		addRow(sheet, []string{
			client,
			t.ClientID,
			t.ItemName,
			string(t.RequiredFor),
			string(t.Target),
			string(t.Priority),
			string(t.Channel),
			t.DueDate.String(),
			strconv.Itoa(ev.DaysOverdue),
			string(t.Status),
			string(ev.Next),
			ev.Action,
			t.Reason,
			t.SourceDoc,
		})
	}

	summary, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	s := chaser.Summarize(report)
	addRow(summary, []string{"Status", "Tasks"})
	for _, st := range model.Statuses {
		addRow(summary, []string{string(st), strconv.Itoa(s.ByStatus[st])})
	}
	addRow(summary, []string{"changed", strconv.Itoa(s.Changed)})
	addRow(summary, []string{"rejected", strconv.Itoa(s.Rejected)})
	addRow(summary, []string{"evaluated_at", report.Now.UTC().Format("2006-01-02 15:04:05")})

	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
