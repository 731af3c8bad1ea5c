package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeReader wraps r so that it yields UTF-8 from the named charset
// (any WHATWG label such as "windows-1252" or "latin1"). An empty name or
// "utf-8" only strips a leading byte order mark.
func DecodeReader(r io.Reader, charset string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		return transform.NewReader(r, unicode.BOMOverride(transform.Nop)), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "charset: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}
