package ingest

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	sniffBytes    = 4096
	minConfidence = 50
)

// normalize decodes the input to UTF-8. A leading byte-order mark selects
// UTF-8 or UTF-16 and is stripped. Input that is not UTF-8 is sniffed from
// its first read and decoded from the detected legacy charset, falling back
// to Windows-1252.
func normalize(r io.Reader) io.Reader {
	return &sniffReader{r: r}
}

// sniffReader defers the encoding decision to the first Read and looks only
// at what that single read returned, so a slow follow source never blocks
// waiting for a full sniff buffer.
type sniffReader struct {
	r   io.Reader
	out io.Reader
}

func (s *sniffReader) Read(p []byte) (int, error) {
	if s.out == nil {
		head := make([]byte, sniffBytes)
		n, err := s.r.Read(head)
		head = head[:n]
		var rest io.Reader = s.r
		if err != nil {
			rest = errReader{err}
		}
		src := io.MultiReader(bytes.NewReader(head), rest)
		s.out = transform.NewReader(src, decoderFor(head))
	}
	return s.out.Read(p)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func decoderFor(head []byte) transform.Transformer {
	utf8Dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if hasUTF16BOM(head) || validUTF8Prefix(head) {
		return utf8Dec
	}
	enc := detectEncoding(head)
	return enc.NewDecoder()
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFE, 0xFF}) || bytes.HasPrefix(b, []byte{0xFF, 0xFE})
}

// validUTF8Prefix accepts b when it is valid UTF-8 except for a rune cut off
// at the end of the read.
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			return !utf8.FullRune(b[i:]) && utf8.Valid(b[:i])
		}
	}
	return false
}

func detectEncoding(head []byte) encoding.Encoding {
	res, err := chardet.NewTextDetector().DetectBest(head)
	if err == nil && res.Confidence >= minConfidence {
		if enc := encodingByName(res.Charset); enc != nil {
			return enc
		}
	}
	return charmap.Windows1252
}

// encodingByName covers the legacy charsets seismic catalogs are published
// in: Western European and Japanese.
func encodingByName(name string) encoding.Encoding {
	switch name {
	case "windows-1252":
		return charmap.Windows1252
	case "ISO-8859-1":
		return charmap.ISO8859_1
	case "ISO-8859-15":
		return charmap.ISO8859_15
	case "Shift_JIS":
		return japanese.ShiftJIS
	case "EUC-JP":
		return japanese.EUCJP
	default:
		return nil
	}
}
