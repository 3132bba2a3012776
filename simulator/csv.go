package simulator

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/schema"
)

// TimestampLayout is the layout WriteCSV uses for the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// WriteCSV writes records with the header of schema.Default, so the output
// loads back through helpers.ParseCSV unchanged.
func WriteCSV(w io.Writer, records []engine.Record) error {
	cols := schema.Default().Columns
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Key
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := range records {
		rec := &records[i]
		for j, col := range cols {
			switch col.Role {
			case schema.RoleTimestamp:
				row[j] = rec.Timestamp.Format(TimestampLayout)
			case schema.RoleStatus:
				row[j] = string(rec.Status)
			case schema.RoleErrorCode:
				row[j] = rec.ErrorCode
			default:
				row[j] = strconv.FormatFloat(engine.Measure(col.Key).Value(rec), 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
