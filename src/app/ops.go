package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
	"github.com/Blackdeer1524/ISAMStore/src/transfer"
)

var ErrBadKey = errors.New("key must be a 32-bit integer")

func ParseKey(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadKey, s)
	}
	return int32(v), nil
}

// ParseRecord splits line on the configured CSV separator and parses one
// value per schema field.
func (s *Store) ParseRecord(line string) (record.Record, error) {
	return s.File.Codec().Parse(strings.Split(line, string(s.Config.Separator())))
}

func (s *Store) Format(r record.Record) string {
	return s.File.Codec().Format(r)
}

// LoadCSV inserts every row of the CSV file at path and returns how many
// records were inserted. The file is reorganized afterwards when asked to.
func (s *Store) LoadCSV(path string, reorganize bool) (n int, err error) {
	file, err := s.Fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	for item := range transfer.ReadCSV(file, s.File.Codec(), s.Config.Separator()) {
		r, err := item.Destruct()
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		if err := s.File.Insert(r); err != nil {
			return n, err
		}
		n++
	}
	s.Log.Infow("loaded csv", "path", path, "records", n)

	if reorganize {
		if err := s.File.Reorganize(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Export writes every live record as JSON lines in file order.
func (s *Store) Export(w io.Writer) (int, error) {
	return transfer.WriteJSONLines(w, s.File.Codec().Schema(), s.File.Records())
}

// PrintPages writes every page with its link and records, tombstones
// included.
func (s *Store) PrintPages(w io.Writer) error {
	for item := range s.File.ScanAll() {
		p, err := item.Destruct()
		if err != nil {
			return err
		}

		switch p.Link {
		case common.Tombstone:
			fmt.Fprintf(w, "Page %d: reusable\n", p.ID)
			continue
		case common.NoLink:
			fmt.Fprintf(w, "Page %d:\n", p.ID)
		default:
			fmt.Fprintf(w, "Page %d -> %d:\n", p.ID, p.Link)
		}
		for _, r := range p.Records {
			fmt.Fprintf(w, "  %s\n", s.Format(r))
		}
	}
	return nil
}

// PrintSchema writes the record schema in the schema file format.
func (s *Store) PrintSchema(w io.Writer) error {
	data, err := record.MarshalSchema(s.File.Codec().Schema())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *Store) PrintStats(w io.Writer) {
	st := s.File.Stats()
	fmt.Fprintf(
		w,
		"policy: %s, block factor: %d, page size: %d bytes\n",
		s.File.Policy(),
		s.File.Layout().BlockFactor(),
		st.PageSize,
	)
	fmt.Fprintf(
		w,
		"pages: %d (primary %d, overflow %d, reusable %d), index entries: %d\n",
		st.Pages,
		st.PrimaryPages,
		st.OverflowPages,
		st.Tombstones,
		st.IndexEntries,
	)
	if s.Config.CachePages > 0 {
		fmt.Fprintf(
			w,
			"cache: %d resident, %d hits, %d misses, %d evictions\n",
			st.Cache.Resident,
			st.Cache.Hits,
			st.Cache.Misses,
			st.Cache.Evictions,
		)
	}
}
