package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// TextEncoding records how a document's extracted text is stored.
type TextEncoding string

const (
	TextPlain  TextEncoding = ""
	TextBrotli TextEncoding = "br"
)

// CompressThreshold is the text size from which stored text is compressed.
const CompressThreshold = 64 * 1024

// EncodeDocumentText returns the bytes to persist for text. Text below
// CompressThreshold is kept as is.
func EncodeDocumentText(text string) ([]byte, TextEncoding, error) {
	if len(text) < CompressThreshold {
		return []byte(text), TextPlain, nil
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := io.WriteString(w, text); err != nil {
		return nil, TextPlain, fmt.Errorf("compress document text: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, TextPlain, fmt.Errorf("compress document text: %w", err)
	}
	return buf.Bytes(), TextBrotli, nil
}

func DecodeDocumentText(stored []byte, enc TextEncoding) (string, error) {
	switch enc {
	case TextPlain, "none":
		return string(stored), nil
	case TextBrotli:
		if len(stored) == 0 {
			return "", nil
		}
		data, err := io.ReadAll(brotli.NewReader(bytes.NewReader(stored)))
		if err != nil {
			return "", fmt.Errorf("decompress document text: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown text encoding %q", enc)
	}
}
