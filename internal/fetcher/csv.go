package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoHeader is returned by ReadCSVTable for input without any record.
var ErrNoHeader = eris.New("csv: no header row")

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 disables comment lines
	LazyQuotes bool
	TrimSpace  bool
	Encoding   string // source charset, see DecodeReader
}

// Table is a CSV source read in full. Rows may be shorter or longer than
// Header.
type Table struct {
	Header []string
	Rows   [][]string
}

func newCSVReader(r io.Reader, opts CSVOptions) (*csv.Reader, error) {
	src, err := DecodeReader(r, opts.Encoding)
	if err != nil {
		return nil, eris.Wrap(err, "csv: decode input")
	}
	reader := csv.NewReader(src)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1
	return reader, nil
}

// StreamCSV parses r in the background and sends every record, header
// included, on the returned channel. The caller must drain the record
// channel; the error channel then yields at most one error. Both are closed
// when parsing stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader, err := newCSVReader(r, opts)
		if err != nil {
			errCh <- err
			return
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if opts.TrimSpace {
				for i := range record {
					record[i] = strings.TrimSpace(record[i])
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVTable reads all of r and splits off the first record as the header.
func ReadCSVTable(ctx context.Context, r io.Reader, opts CSVOptions) (*Table, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var t *Table
	for record := range rowCh {
		if t == nil {
			t = &Table{Header: record}
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNoHeader
	}
	return t, nil
}
