package sha256

import (
	"strings"
	"testing"
)

func TestDigestKnownValue(t *testing.T) {
	t.Parallel()

	got := Digest("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Fatalf("Digest() = %s, want %s", got, want)
	}
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	key := ObjectKey("/manifests/", "https://Docs.Example.com/guide")
	if !strings.HasPrefix(key, "manifests/docs.example.com/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected key %q", key)
	}
	if ObjectKey("", "https://example.com/a") == ObjectKey("", "https://example.com/b") {
		t.Fatal("expected distinct keys for distinct URLs")
	}
	if got := ObjectKey("", "not a url"); !strings.HasPrefix(got, "unknown/") {
		t.Fatalf("expected unknown host bucket, got %q", got)
	}
}
