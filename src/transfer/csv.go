package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

const DefaultSeparator = ';'

const (
	csvDateLayout    = "2/1/2006"
	storedDateLayout = "2006-01-02"
)

var ErrBadHeader = errors.New("csv header does not match the schema")

// ReadCSV yields one record per data row of r. The first row is a header
// naming every schema field once, by name or alias, in any order. Dates
// written as day/month/year are stored as year-month-day.
func ReadCSV(
	r io.Reader,
	codec *record.Codec,
	sep rune,
) iter.Seq[utils.Pair[record.Record, error]] {
	return func(yield func(utils.Pair[record.Record, error]) bool) {
		reader := csv.NewReader(r)
		reader.Comma = sep
		reader.TrimLeadingSpace = true
		reader.FieldsPerRecord = len(codec.Schema().Fields)

		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			utils.YieldError(fmt.Errorf("%w: %w", ErrBadHeader, err), yield)
			return
		}
		columns, err := mapHeader(header, codec.Schema())
		if err != nil {
			utils.YieldError(err, yield)
			return
		}

		dates := dateColumns(codec.Schema())
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				utils.YieldError(err, yield)
				return
			}

			values := make([]string, len(row))
			for col, field := range columns {
				values[field] = row[col]
			}
			for _, i := range dates {
				values[i] = NormalizeDate(values[i])
			}
			rec, err := codec.Parse(values)
			if err != nil {
				line, _ := reader.FieldPos(0)
				utils.YieldError(fmt.Errorf("line %d: %w", line, err), yield)
				return
			}
			if !yield(utils.Pair[record.Record, error]{First: rec}) {
				return
			}
		}
	}
}

// mapHeader returns the schema field index of every header column.
func mapHeader(header []string, schema record.Schema) ([]int, error) {
	columns := make([]int, len(header))
	seen := make([]bool, len(schema.Fields))
	for col, title := range header {
		if col == 0 {
			title = strings.TrimPrefix(title, "\ufeff")
		}
		field := schema.FieldIndex(title)
		if field < 0 {
			return nil, fmt.Errorf("%w: unknown column %q", ErrBadHeader, title)
		}
		if seen[field] {
			return nil, fmt.Errorf("%w: column %q repeats field %q", ErrBadHeader, title, schema.Fields[field].Name)
		}
		seen[field] = true
		columns[col] = field
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: missing column for field %q", ErrBadHeader, schema.Fields[i].Name)
		}
	}
	return columns, nil
}

func dateColumns(schema record.Schema) []int {
	var out []int
	for i, f := range schema.Fields {
		if f.Type == record.FieldTypeDate {
			out = append(out, i)
		}
	}
	return out
}

// NormalizeDate rewrites a day/month/year date as year-month-day and
// returns anything else trimmed but unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	t, err := time.Parse(csvDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(storedDateLayout)
}
