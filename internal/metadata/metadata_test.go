package metadata

import "testing"

func TestNormalizeTitle_StripsNoisySubstrings(t *testing.T) {
	cases := map[string]string{
		"Song Name (Official Video)":       "Song Name",
		"Another Song [Official Audio]":    "Another Song",
		"Track Title (Lyrics)":             "Track Title",
		"Clean Title":                      "Clean Title",
		"Mixed Case song (official video)": "Mixed Case song",
	}

	for in, want := range cases {
		got := normalizeTitle(in)
		if got != want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlexibleInt_AcceptsNumberAndString(t *testing.T) {
	var f flexibleInt
	if err := f.UnmarshalJSON([]byte("8.171")); err != nil {
		t.Fatalf("unmarshal float error: %v", err)
	}
	if f != 8 {
		t.Errorf("flexibleInt from float = %d, want 8", f)
	}

	if err := f.UnmarshalJSON([]byte(`"120"`)); err != nil {
		t.Fatalf("unmarshal string error: %v", err)
	}
	if f != 120 {
		t.Errorf("flexibleInt from string = %d, want 120", f)
	}

	if err := f.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("unmarshal null error: %v", err)
	}
	if f != 0 {
		t.Errorf("flexibleInt from null = %d, want 0", f)
	}
}

func TestFlexibleString_HandlesNull(t *testing.T) {
	var s flexibleString
	if err := s.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if s != "" {
		t.Errorf("flexibleString from null = %q, want empty", s)
	}

	if err := s.UnmarshalJSON([]byte(`"hello"`)); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if s != "hello" {
		t.Errorf("flexibleString = %q, want %q", s, "hello")
	}
}

func TestNonEmptyPtr(t *testing.T) {
	if nonEmptyPtr("") != nil {
		t.Error("expected nil for empty string")
	}
	ptr := nonEmptyPtr("value")
	if ptr == nil || *ptr != "value" {
		t.Error("expected pointer to value")
	}
}

func TestBuildArgs_TrackIncludesNoPlaylist(t *testing.T) {
	d := NewDriver("yt-dlp")
	args := d.buildArgs("track", "https://host.tld/track/x")

	found := false
	for _, a := range args {
		if a == "--no-playlist" {
			found = true
		}
	}
	if !found {
		t.Error("expected --no-playlist for track probes")
	}
}

func TestBuildArgs_AlbumOmitsNoPlaylist(t *testing.T) {
	d := NewDriver("yt-dlp")
	args := d.buildArgs("album", "https://host.tld/album/x")

	for _, a := range args {
		if a == "--no-playlist" {
			t.Error("did not expect --no-playlist for album probes")
		}
	}
}
