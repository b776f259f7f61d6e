package grouping

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/desertthunder/radiosync/internal/models"
)

// Ownership markers recognized in playlist descriptions.
const (
	// GeneratedPhrase opens every description written by this tool and by its predecessors.
	GeneratedPhrase = "Generated from Spinitron playlists"
	// LatestIDLabel precedes the watermark in the human readable part of a description.
	LatestIDLabel = "Latest ID:"
	// LegacyIDLabel is the single-show format of early playlists. Note the accented i.
	LegacyIDLabel = "Spinítron ID:"
	// MarkerPrefix opens the structured ownership marker.
	MarkerPrefix = "[radiosync"
)

// DescriptionTimeFormat renders the refresh time in UTC.
const DescriptionTimeFormat = "2006-01-02 15:04 UTC"

var substitutions = strings.NewReplacer(
	"(((∞)))", "Infinity",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

var markerPattern = regexp.MustCompile(`\[radiosync watermark=(\d+)\]`)

// Sanitize applies the substitution table, drops every rune that is neither ASCII nor
// whitespace and trims the result.
func Sanitize(title string) string {
	s := substitutions.Replace(title)
	s = strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// PlaylistName is the canonical "{station} - {sanitized title}" lookup key.
func PlaylistName(station, title string) string {
	return station + " - " + Sanitize(title)
}

// Marker is the structured ownership token embedded in descriptions.
func Marker(watermark uint64) string {
	return fmt.Sprintf("%s watermark=%d]", MarkerPrefix, watermark)
}

// Description builds the playlist description for a group refreshed at now.
func Description(g models.ShowGroup, now time.Time) string {
	watermark := Watermark(g.Episodes)
	return fmt.Sprintf("%s. Station: %s Show: %s Episodes: %d %s %d Last updated: %s %s",
		GeneratedPhrase, g.Station, Sanitize(g.Title), Episodes(g.Episodes),
		LatestIDLabel, watermark, now.UTC().Format(DescriptionTimeFormat), Marker(watermark))
}

// HasMarker reports whether description carries the structured marker.
func HasMarker(description string) bool {
	return markerPattern.MatchString(description)
}

// ParseWatermark extracts the watermark from a description.
//
// The structured marker wins, then "Latest ID: N", then the first id of a legacy
// "Spinítron ID:" line. ok is false when no format is present.
func ParseWatermark(description string) (watermark uint64, ok bool) {
	if m := markerPattern.FindStringSubmatch(description); m != nil {
		if id, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			return id, true
		}
	}

	if _, rest, found := strings.Cut(description, LatestIDLabel); found {
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			id, _ := strconv.ParseUint(fields[0], 10, 64)
			return id, true
		}
	}

	for _, line := range strings.Split(description, "\n") {
		_, rest, found := strings.Cut(line, LegacyIDLabel)
		if !found {
			continue
		}
		rest = strings.NewReplacer("[", "", "]", "").Replace(rest)
		first, _, _ := strings.Cut(rest, ",")
		id, _ := strconv.ParseUint(strings.TrimSpace(first), 10, 64)
		return id, true
	}

	return 0, false
}

// NameHash is the stable FNV-1a hash of a playlist name, used as the watermark of owned
// playlists whose description carries no id.
func NameHash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}
