package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]byte("hello world"), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("got %q", text)
	}
}

func TestExtractMarkdown(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]byte("# Title\n\nbody"), "README.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "body") {
		t.Errorf("got %q", text)
	}
}

func TestExtractInvalidUTF8Replaced(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]byte{'o', 'k', 0xff, 0xfe, '!'}, "raw.txt")
	if err != nil {
		t.Fatalf("decode failure should not be fatal: %v", err)
	}
	if !strings.HasPrefix(text, "ok") || !strings.HasSuffix(text, "!") {
		t.Errorf("got %q", text)
	}
	if !strings.Contains(text, "�") {
		t.Errorf("expected replacement character in %q", text)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor()
	for _, name := range []string{"sheet.xlsx", "slides.pptx", "archive.zip", "noext"} {
		if _, err := e.Extract([]byte("data"), name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract([]byte("not a pdf"), "broken.pdf"); err == nil {
		t.Error("expected error for malformed PDF bytes")
	}
}

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"a.txt":  true,
		"b.MD":   true,
		"c.pdf":  true,
		"d.docx": false,
		"e":      false,
	}
	for name, want := range cases {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q): got %t, want %t", name, got, want)
		}
	}
}
