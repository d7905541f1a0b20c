package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestEncodeDocumentText(t *testing.T) {
	small := "short text"
	data, enc, err := EncodeDocumentText(small)
	if err != nil {
		t.Fatalf("EncodeDocumentText() error = %v", err)
	}
	if enc != TextPlain || string(data) != small {
		t.Errorf("small text stored with encoding %q", enc)
	}

	large := strings.Repeat("the mitochondria is the powerhouse of the cell. ", 3000)
	data, enc, err = EncodeDocumentText(large)
	if err != nil {
		t.Fatalf("EncodeDocumentText() error = %v", err)
	}
	if enc != TextBrotli {
		t.Fatalf("encoding = %q, want %q", enc, TextBrotli)
	}
	if len(data) >= len(large) {
		t.Errorf("compressed size %d not smaller than %d", len(data), len(large))
	}

	back, err := DecodeDocumentText(data, enc)
	if err != nil {
		t.Fatalf("DecodeDocumentText() error = %v", err)
	}
	if back != large {
		t.Fatal("DecodeDocumentText() did not restore the original text")
	}
}

func TestDecodeUnknownEncoding(t *testing.T) {
	if _, err := DecodeDocumentText([]byte("x"), "lz4"); err == nil {
		t.Fatal("DecodeDocumentText() accepted an unknown encoding")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("parse failure")
	err := NewBadGateway("ai_parse_failed", "Could not read generated quiz", cause)

	if !errors.Is(err, cause) {
		t.Error("AppError does not unwrap to its cause")
	}
	var appErr *AppError
	if !errors.As(error(err), &appErr) || appErr.Status != http.StatusBadGateway {
		t.Errorf("errors.As() = %+v", appErr)
	}
	if !strings.Contains(err.Error(), "parse failure") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Cells\n\n- **nucleus**\n- <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.Contains(html, "<h1>Cells</h1>") || !strings.Contains(html, "<strong>nucleus</strong>") {
		t.Errorf("unexpected HTML: %s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw HTML passed through: %s", html)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword("secret123", hash) {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword() accepted the wrong password")
	}
}

func TestHashReader(t *testing.T) {
	got, err := HashReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("HashReader() error = %v", err)
	}
	if got != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("HashReader() = %s", got)
	}
}
