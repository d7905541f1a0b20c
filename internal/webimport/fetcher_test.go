package webimport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
)

const article = `<!doctype html>
<html>
<head><title>  Cell   Biology Basics </title><script>var tracking = 1;</script></head>
<body>
  <nav><a href="/">Home</a> <a href="/about">About</a></nav>
  <article>
    <h1>The Cell</h1>
    <p>Cells are the basic structural and functional units of every known living organism on Earth.</p>
    <p>The mitochondria   produce most of the chemical energy needed to power biochemical reactions.</p>
    <ul><li><p>Ribosomes build proteins.</p></li><li>The nucleus stores genetic material.</li></ul>
  </article>
  <footer>Copyright notice that should not be imported</footer>
</body>
</html>`

func TestExtractReadableText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	title, text := ExtractReadableText(doc.Selection)
	if title != "Cell Biology Basics" {
		t.Errorf("title = %q", title)
	}

	lines := strings.Split(text, "\n")
	want := []string{
		"The Cell",
		"Cells are the basic structural and functional units of every known living organism on Earth.",
		"The mitochondria produce most of the chemical energy needed to power biochemical reactions.",
		"Ribosomes build proteins.",
		"The nucleus stores genetic material.",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	for _, noise := range []string{"tracking", "Home", "Copyright"} {
		if strings.Contains(text, noise) {
			t.Errorf("text contains %q", noise)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/page", false},
		{"http://example.com", false},
		{"ftp://example.com/file", true},
		{"file:///etc/passwd", true},
		{"not a url", true},
		{"https://", true},
	}

	for _, tt := range tests {
		_, err := ValidateURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("ValidateURL(%q) error = %v, want ErrUnsupportedURL", tt.url, err)
		}
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(article))
		case "/brotli":
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte(article))
			bw.Close()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Encoding", "br")
			w.Write(buf.Bytes())
		case "/empty":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body><p>too short</p></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "")

	for _, path := range []string{"/plain", "/brotli"} {
		t.Run(path, func(t *testing.T) {
			page, err := f.Fetch(context.Background(), srv.URL+path)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if page.Title != "Cell Biology Basics" {
				t.Errorf("title = %q", page.Title)
			}
			if !strings.Contains(page.Text, "mitochondria produce") {
				t.Errorf("text missing article body: %q", page.Text)
			}
			if page.StatusCode != http.StatusOK {
				t.Errorf("status = %d", page.StatusCode)
			}
		})
	}

	t.Run("too little text", func(t *testing.T) {
		if _, err := f.Fetch(context.Background(), srv.URL+"/empty"); !errors.Is(err, ErrNoContent) {
			t.Fatalf("Fetch() error = %v, want ErrNoContent", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
			t.Fatal("Fetch() expected error for 404")
		}
	})
}
