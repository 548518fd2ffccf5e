package tabular

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when a source does not name one
const DefaultEncoding = "utf-8"

// LookupEncoding resolves a charset name. UTF-8 input may carry a BOM, as
// spreadsheet exports usually do.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.UTF8BOM, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "euc-kr", "euckr", "cp949", "ks_c_5601-1987":
		return korean.EUCKR, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}

// NewDecodingReader wraps r so that it yields UTF-8. A leading BOM always
// wins over the configured encoding.
func NewDecodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	decoder := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(r, decoder)
}
