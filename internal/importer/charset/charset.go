// Package charset turns bank statement bytes of unknown encoding into UTF-8.
package charset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Name is the charset a statement was decoded from.
type Name string

const (
	UTF8        Name = "UTF-8"
	UTF16LE     Name = "UTF-16LE"
	UTF16BE     Name = "UTF-16BE"
	Windows1252 Name = "windows-1252"
	ISO88599    Name = "ISO-8859-9"
)

// sniffSize is how much of the statement is inspected before decoding.
const sniffSize = 4096

var boms = []struct {
	prefix  []byte
	name    Name
	decoder func() *encoding.Decoder
}{
	{[]byte{0xEF, 0xBB, 0xBF}, UTF8, nil},
	{[]byte{0xFF, 0xFE}, UTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder},
	{[]byte{0xFE, 0xFF}, UTF16BE, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder},
}

// detected maps chardet results onto the decoders statements actually use.
var detected = map[string]Name{
	"UTF-8":        UTF8,
	"ISO-8859-1":   Windows1252,
	"windows-1252": Windows1252,
	"ISO-8859-9":   ISO88599,
}

var decoders = map[Name]func() *encoding.Decoder{
	Windows1252: charmap.Windows1252.NewDecoder,
	ISO88599:    charmap.ISO8859_9.NewDecoder,
}

// NewReader returns a UTF-8 view of r and the charset it was decoded from.
// A byte order mark wins, then valid UTF-8, then chardet's best guess.
// Anything else is read as Windows-1252, which is what Portuguese banks export.
func NewReader(r io.Reader) (io.Reader, Name, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peeking statement: %w", err)
	}

	for _, bom := range boms {
		if !bytes.HasPrefix(head, bom.prefix) {
			continue
		}

		if bom.decoder == nil {
			_, _ = br.Discard(len(bom.prefix))
			return br, bom.name, nil
		}

		return transform.NewReader(br, bom.decoder()), bom.name, nil
	}

	if utf8.Valid(head) {
		return br, UTF8, nil
	}

	name := Windows1252

	if best, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if n, ok := detected[best.Charset]; ok {
			name = n
		}
	}

	if name == UTF8 {
		return br, UTF8, nil
	}

	return transform.NewReader(br, decoders[name]()), name, nil
}
