package platform

import (
	"testing"

	"trackforge/internal/constants"
)

func TestNormalize_LowercasesSchemeAndHost(t *testing.T) {
	got := Normalize("HTTPS://Host.TLD/track/x")
	want := "https://host.tld/track/x"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	got := Normalize("  https://host.tld/track/x  ")
	want := "https://host.tld/track/x"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_PreservesPathQueryFragment(t *testing.T) {
	in := "https://Music.Host.TLD/watch?v=ABC123&t=30#frag"
	got := Normalize(in)
	want := "https://music.host.tld/watch?v=ABC123&t=30#frag"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Host.TLD/track/x",
		"  https://music.host.tld/watch?v=ABC  ",
		"not a url at all",
		"https://HOST.TLD/album/y?x=1",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: Normalize(in)=%q, Normalize(Normalize(in))=%q", in, once, twice)
		}
	}
}

func TestNormalize_FallsBackOnParseFailure(t *testing.T) {
	in := "://not-a-valid-url"
	got := Normalize(in)
	if got != "://not-a-valid-url" {
		t.Errorf("Normalize() fallback = %q, want lowercased trimmed input", got)
	}
}

func TestDetect_PlatformATrack(t *testing.T) {
	provider, kind, ok := Detect("https://host.tld/track/abc123")
	if !ok {
		t.Fatal("expected detection to succeed")
	}
	if provider != constants.ProviderA || kind != constants.KindTrack {
		t.Errorf("Detect() = %q/%q, want %q/%q", provider, kind, constants.ProviderA, constants.KindTrack)
	}
}

func TestDetect_PlatformAAlbum(t *testing.T) {
	provider, kind, ok := Detect("https://host.tld/album/xyz")
	if !ok {
		t.Fatal("expected detection to succeed")
	}
	if provider != constants.ProviderA || kind != constants.KindAlbum {
		t.Errorf("Detect() = %q/%q, want %q/%q", provider, kind, constants.ProviderA, constants.KindAlbum)
	}
}

func TestDetect_PlatformMWatch(t *testing.T) {
	provider, kind, ok := Detect("https://music.host.tld/watch?v=abc")
	if !ok {
		t.Fatal("expected detection to succeed")
	}
	if provider != constants.ProviderM || kind != constants.KindTrack {
		t.Errorf("Detect() = %q/%q, want %q/%q", provider, kind, constants.ProviderM, constants.KindTrack)
	}
}

func TestDetect_PlatformMPlaylist(t *testing.T) {
	provider, kind, ok := Detect("https://m.host.tld/playlist?list=abc")
	if !ok {
		t.Fatal("expected detection to succeed")
	}
	if provider != constants.ProviderM || kind != constants.KindAlbum {
		t.Errorf("Detect() = %q/%q, want %q/%q", provider, kind, constants.ProviderM, constants.KindAlbum)
	}
}

func TestDetect_Unrecognized(t *testing.T) {
	cases := []string{
		"https://unrelated.example.com/watch?v=1",
		"https://host.tld/unknown/path",
		"not a url",
		"",
	}
	for _, c := range cases {
		if _, _, ok := Detect(c); ok {
			t.Errorf("Detect(%q) should not match any platform", c)
		}
	}
}

func TestValidate_ReturnsProvider(t *testing.T) {
	provider, err := Validate("https://host.tld/track/x")
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if provider != constants.ProviderA {
		t.Errorf("Validate() = %q, want %q", provider, constants.ProviderA)
	}
}

func TestValidate_FailsOnUnrecognized(t *testing.T) {
	_, err := Validate("https://unrelated.example.com/x")
	if err == nil {
		t.Error("expected error for unrecognized URL")
	}
}
