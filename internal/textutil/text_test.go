package textutil

import (
	"reflect"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDetectBinary(t *testing.T) {
	if DetectBinary(nil) {
		t.Fatalf("empty should not be binary")
	}
	if !DetectBinary([]byte{1, 2, 0, 3}) {
		t.Fatalf("nul byte should be binary")
	}
	if !DetectBinary([]byte{1, 2, 3, 4, 5, 6, 7, 'a'}) {
		t.Fatalf("high control-ratio should be binary")
	}
	if DetectBinary([]byte("def f():\n\treturn 1\f\n")) {
		t.Fatalf("plain source should not be binary")
	}
}

func TestDecodeUTF8AndBOM(t *testing.T) {
	dec, err := NewDecoder(nil)
	if err != nil {
		t.Fatalf("create decoder: %v", err)
	}

	got, err := dec.Decode([]byte("\xef\xbb\xbf# 注释\n"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Text != "# 注释\n" || got.Encoding != DefaultEncoding {
		t.Fatalf("unexpected decode result: %+v", got)
	}

	if _, err := dec.Decode([]byte{'x', 0xff}); err == nil {
		t.Fatalf("invalid utf-8 should fail without fallbacks")
	}
}

func TestDecodeFallbacks(t *testing.T) {
	gbkBytes, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("中文"))
	if err != nil {
		t.Fatalf("encode gbk: %v", err)
	}

	dec, err := NewDecoder([]string{"GBK", "latin1"})
	if err != nil {
		t.Fatalf("create decoder: %v", err)
	}
	if !reflect.DeepEqual(dec.Encodings(), []string{"utf-8", "gbk", "latin-1"}) {
		t.Fatalf("unexpected encodings: %v", dec.Encodings())
	}

	got, err := dec.Decode(gbkBytes)
	if err != nil {
		t.Fatalf("gbk decode failed: %v", err)
	}
	if got.Text != "中文" || got.Encoding != "gbk" {
		t.Fatalf("unexpected decode result: %+v", got)
	}

	latin, err := NewDecoder([]string{"iso-8859-1"})
	if err != nil {
		t.Fatalf("create decoder: %v", err)
	}
	got, err = latin.Decode([]byte{'c', 'a', 'f', 0xe9})
	if err != nil {
		t.Fatalf("latin-1 decode failed: %v", err)
	}
	if got.Text != "café" || got.Encoding != "latin-1" {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

func TestNewDecoderRejectsUnknown(t *testing.T) {
	if _, err := NewDecoder([]string{"ebcdic"}); err == nil {
		t.Fatalf("expected unsupported encoding error")
	}
	dec, err := NewDecoder([]string{"utf8", " UTF-8 ", ""})
	if err != nil {
		t.Fatalf("create decoder: %v", err)
	}
	if !reflect.DeepEqual(dec.Encodings(), []string{"utf-8"}) {
		t.Fatalf("unexpected encodings: %v", dec.Encodings())
	}
}

func TestSplitLines(t *testing.T) {
	cases := map[string][]string{
		"":               {},
		"a":              {"a"},
		"a\n":            {"a"},
		"a\n\n":          {"a", ""},
		"a\r\nb\rc":      {"a", "b", "c"},
		"\n":             {""},
		"  \n\tx\r\n":    {"  ", "\tx"},
		"a\r\n\r\n":      {"a", ""},
		"x\n\f\ny":       {"x", "", "", "y"},
		"a\vb\x1cc":      {"a", "b", "c"},
		"a\x1d\x1eb":     {"a", "", "b"},
		"a\u0085b":       {"a", "b"},
		"a\u2028b\u2029": {"a", "b"},
	}
	for in, want := range cases {
		if got := SplitLines(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("split %q: want %q, got %q", in, want, got)
		}
	}
}

func TestIsBlank(t *testing.T) {
	for _, line := range []string{"", "  \t", "\x1f", "\u00a0\u3000"} {
		if !IsBlank(line) {
			t.Fatalf("expected %q to be blank", line)
		}
	}
	if IsBlank(" x ") {
		t.Fatalf("unexpected blank line")
	}
}

func TestDisplayWidth(t *testing.T) {
	if got := DisplayWidth("中a"); got != 3 {
		t.Fatalf("unexpected width: %d", got)
	}
	if got := PadRight("中", 4); got != "中  " {
		t.Fatalf("unexpected padding: %q", got)
	}
}

func TestHashSHA256(t *testing.T) {
	if got := HashSHA256(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected digest: %s", got)
	}
}
