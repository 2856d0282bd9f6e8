package transfer

import (
	"fmt"
	"io"
	"iter"

	"github.com/go-faster/jx"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// WriteJSONLines writes every record as one JSON object per line, keyed by
// field name, and returns how many records were written.
func WriteJSONLines(
	w io.Writer,
	schema record.Schema,
	records iter.Seq[utils.Pair[record.Record, error]],
) (int, error) {
	var e jx.Encoder

	written := 0
	for item := range records {
		r, err := item.Destruct()
		if err != nil {
			return written, err
		}

		e.Reset()
		if err := encodeRecord(&e, schema, r); err != nil {
			return written, err
		}
		if _, err := w.Write(append(e.Bytes(), '\n')); err != nil {
			return written, fmt.Errorf("failed to write record %d: %w", written, err)
		}
		written++
	}
	return written, nil
}

func encodeRecord(e *jx.Encoder, schema record.Schema, r record.Record) error {
	if len(r) != len(schema.Fields) {
		return fmt.Errorf(
			"%w: got %d values for %d fields",
			record.ErrSchemaMismatch,
			len(r),
			len(schema.Fields),
		)
	}

	e.ObjStart()
	for i, f := range schema.Fields {
		e.FieldStart(f.Name)
		switch v := r[i].(type) {
		case int32:
			e.Int32(v)
		case float64:
			e.Float64(v)
		case string:
			e.Str(v)
		default:
			return fmt.Errorf("%w: field %q holds %T", record.ErrSchemaMismatch, f.Name, v)
		}
	}
	e.ObjEnd()
	return nil
}
