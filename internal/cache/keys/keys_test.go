package keys

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9:_=\-]+$`)

func TestCell_Deterministic(t *testing.T) {
	k1 := Cell("earthpixel", "168-b4-168")
	k2 := Cell("earthpixel", "168-b4-168")
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !strings.HasPrefix(k1, "earthpixel:cell:v1:168-b4-168:h=") {
		t.Fatalf("unexpected layout: %s", k1)
	}
	if !safeKey.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestCell_DifferentPixelKeysDiffer(t *testing.T) {
	if Cell("ns", "168-b4-168") == Cell("ns", "168-b4-196") {
		t.Fatal("distinct pixel keys must produce distinct cache keys")
	}
}

func TestCell_EmptyNamespaceDefaults(t *testing.T) {
	if k := Cell("  ", "2-0-1"); !strings.HasPrefix(k, "earthpixel:cell:") {
		t.Fatalf("default namespace not applied: %s", k)
	}
}

func TestCell_HostileInputStaysASCIIAndHashed(t *testing.T) {
	k := Cell("team space", "Göteborg\n雪 "+strings.Repeat("x", 300))

	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if !safeKey.MatchString(k) {
		t.Fatalf("key contains disallowed characters: %s", k)
	}
	m := regexp.MustCompile(`:h=([0-9a-f]{16})$`).FindStringSubmatch(k)
	if len(m) != 2 {
		t.Fatalf("missing or invalid :h=<hex64> suffix in key: %s", k)
	}
	if len(k) > 200 {
		t.Fatalf("key not truncated: len=%d", len(k))
	}
}

func TestCell_TruncatedInputsStayDistinct(t *testing.T) {
	base := strings.Repeat("a", 200)
	if Cell("ns", base+"1") == Cell("ns", base+"2") {
		t.Fatal("hash suffix must separate inputs sharing a truncated prefix")
	}
}
