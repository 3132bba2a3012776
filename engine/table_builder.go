package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Row-per-record view of the filtered data
// ============================================================================
// Column discovery uses view.MeasureKeys(), so a dataset without the
// cycle-time column simply has no cycle-time column here.
// ============================================================================

// DefaultPageSize is used when BuildRecordTable receives limit <= 0.
const DefaultPageSize = 100

// BuildRecordTable renders one page of view. Offset past the end yields an
// empty page with Total still set.
func BuildRecordTable(view RecordView, offset, limit int) *TableData {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	measures := view.MeasureKeys()
	columns := make([]Column, 0, len(measures)+3)
	columns = append(columns,
		Column{Key: "timestamp", Label: "Timestamp", Type: "time", Align: "left"},
		Column{Key: "machine_status", Label: "Machine Status", Type: "text", Align: "center"},
		Column{Key: "error_code", Label: "Error Code", Type: "text", Align: "center"},
	)
	for _, m := range measures {
		columns = append(columns, Column{
			Key:   string(m),
			Label: LabelForMeasure(m),
			Type:  "number",
			Align: "right",
		})
	}

	total := view.Len()
	table := &TableData{
		Title:   "Filtered Data View",
		Columns: columns,
		Rows:    [][]string{},
		Total:   total,
		Offset:  offset,
	}
	if total == 0 {
		table.Summary = &Summary{Label: "No records", Values: map[string]string{}}
		return table
	}

	end := offset + limit
	if end > total {
		end = total
	}
	for i := offset; i < end; i++ {
		row := make([]string, 0, len(columns))
		row = append(row,
			formatTimestamp(view.Timestamp(i)),
			string(view.Status(i)),
			view.ErrorCode(i),
		)
		for _, m := range measures {
			row = append(row, formatCell(m, view.Measure(i, m)))
		}
		table.Rows = append(table.Rows, row)
	}

	if offset >= total {
		table.Summary = &Summary{
			Label:  fmt.Sprintf("No rows past offset %d (%s records)", offset, FormatInt(total)),
			Values: map[string]string{},
		}
		return table
	}
	table.Summary = &Summary{
		Label: fmt.Sprintf("Showing %d–%d of %s records", offset+1, end, FormatInt(total)),
		Values: map[string]string{
			string(MeasureProduction): FormatNumber(SumMeasure(view, MeasureProduction), 0),
		},
	}
	return table
}

func formatCell(m Measure, v float64) string {
	if m == MeasureProduction {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
