package dataset

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/fetcher"
)

// csvFormat is the per-source CSV dialect taken from configuration.
type csvFormat struct {
	Delimiter string
	Comment   string
	Encoding  string
}

func (f csvFormat) options() fetcher.CSVOptions {
	opts := fetcher.CSVOptions{
		LazyQuotes: true,
		TrimSpace:  true,
		Encoding:   f.Encoding,
	}
	if f.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(f.Delimiter)
	}
	if f.Comment != "" {
		opts.Comment, _ = utf8.DecodeRuneInString(f.Comment)
	}
	return opts
}

// readCSVTable reads a whole CSV file, returning its header and data rows.
func readCSVTable(ctx context.Context, path string, format csvFormat) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := fetcher.ReadCSVTable(ctx, f, format.options())
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return t.Header, t.Rows, nil
}
