// Package metadata invokes the Extractor in probe mode and maps its JSON
// output into a Media candidate, tolerating the inconsistent field shapes
// real-world extractor output exhibits across providers.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"trackforge/internal/constants"
	apperr "trackforge/internal/errors"
	"trackforge/internal/storage"
)

// flexibleInt accepts either a JSON number or a numeric string, since
// extractors are inconsistent about whether duration/year come back as
// int, float, or string.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexibleInt(int(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var parsed float64
		fmt.Sscanf(s, "%f", &parsed)
		*f = flexibleInt(int(parsed))
		return nil
	}
	*f = 0
	return nil
}

// flexibleString accepts a JSON string or null, collapsing null to "".
type flexibleString string

func (s *flexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = flexibleString(v)
	return nil
}

// probeEntry is one JSON document from the Extractor's dump-metadata output;
// fields are a superset covering both track and album/playlist shapes.
type probeEntry struct {
	ID          string         `json:"id"`
	Title       flexibleString `json:"title"`
	Artist      flexibleString `json:"artist"`
	Album       flexibleString `json:"album"`
	AlbumArtist flexibleString `json:"album_artist"`
	Year        flexibleInt    `json:"release_year"`
	Thumbnail   flexibleString `json:"thumbnail"`
	Duration    flexibleInt    `json:"duration"`
}

type probeDocument struct {
	probeEntry
	Type    flexibleString `json:"_type"`
	Entries []probeEntry   `json:"entries"`
}

// noisyTitleSubstrings is an enumerated rewrite table of common decorations
// extractors leave in titles; each is stripped case-insensitively.
var noisyTitleSubstrings = []string{
	"(Official Video)",
	"(Official Audio)",
	"(Official Music Video)",
	"[Official Video]",
	"[Official Audio]",
	"(Lyrics)",
	"(Lyric Video)",
	"(Visualizer)",
	"(HD)",
	"(HQ)",
}

// Candidate is a partially-populated Media record derived from a probe.
type Candidate struct {
	Title       *string
	Artist      *string
	Album       *string
	AlbumArtist *string
	Year        *int
	CoverURL    *string
	Duration    int
	Provider    constants.Provider
	ProviderID  *string
	Kind        constants.MediaKind
	Tracks      []storage.Track
}

// Driver invokes the Extractor in probe (dump-metadata) mode.
type Driver struct {
	ExtractorPath string
}

// NewDriver creates a metadata driver for the given Extractor binary.
func NewDriver(extractorPath string) *Driver {
	return &Driver{ExtractorPath: extractorPath}
}

// Probe fetches and parses metadata for a single URL classified as
// (provider, kind). Metadata failures are always recoverable by the caller;
// Probe itself just reports a typed error.
func (d *Driver) Probe(ctx context.Context, provider constants.Provider, kind constants.MediaKind, url string) (*Candidate, error) {
	args := d.buildArgs(kind, url)

	cmd := exec.CommandContext(ctx, d.ExtractorPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, apperr.WrapWithMessage("metadata.Probe", err,
			fmt.Sprintf("extractor exited %d: %s", exitCode, strings.TrimSpace(stderr.String())))
	}

	var doc probeDocument
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, apperr.WrapWithMessage("metadata.Probe", err, "failed to parse extractor output")
	}

	candidate := &Candidate{
		Provider:    provider,
		Kind:        kind,
		ProviderID:  nonEmptyPtr(doc.ID),
		Title:       nonEmptyPtr(normalizeTitle(string(doc.Title))),
		Artist:      nonEmptyPtr(string(doc.Artist)),
		Album:       nonEmptyPtr(string(doc.Album)),
		AlbumArtist: nonEmptyPtr(string(doc.AlbumArtist)),
		CoverURL:    nonEmptyPtr(string(doc.Thumbnail)),
		Duration:    int(doc.Duration),
	}
	if doc.Year != 0 {
		year := int(doc.Year)
		candidate.Year = &year
	}

	if kind == constants.KindAlbum && len(doc.Entries) > 0 {
		candidate.Tracks = make([]storage.Track, 0, len(doc.Entries))
		for i, entry := range doc.Entries {
			candidate.Tracks = append(candidate.Tracks, storage.Track{
				TrackNo:  i + 1,
				Title:    normalizeTitle(string(entry.Title)),
				Duration: int(entry.Duration),
			})
		}
	}

	return candidate, nil
}

// buildArgs chooses dump-metadata flags by media kind: a single item is
// probed with --no-playlist, a collection is probed without it so the
// Extractor emits an entries array.
func (d *Driver) buildArgs(kind constants.MediaKind, url string) []string {
	args := []string{
		"--dump-json",
		"--no-warnings",
		"--no-check-certificate",
		"--ignore-errors",
	}
	if kind == constants.KindTrack {
		args = append(args, "--no-playlist")
	}
	return append(args, url)
}

func normalizeTitle(title string) string {
	result := title
	for _, noisy := range noisyTitleSubstrings {
		result = replaceFold(result, noisy, "")
	}
	return strings.TrimSpace(result)
}

func replaceFold(s, substr, repl string) string {
	lowerS := strings.ToLower(s)
	lowerSub := strings.ToLower(substr)
	idx := strings.Index(lowerS, lowerSub)
	if idx < 0 {
		return s
	}
	return s[:idx] + repl + s[idx+len(substr):]
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
