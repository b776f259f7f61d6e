// package formatter renders owned playlists as Markdown, JSON Lines or CSV reports
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// Format is a report encoding.
type Format string

const (
	Markdown Format = "markdown"
	JSONL    Format = "jsonl"
	CSV      Format = "csv"
)

// Formats lists every supported format.
var Formats = []Format{Markdown, JSONL, CSV}

// ReportTimeFormat renders the footer timestamp in UTC.
const ReportTimeFormat = "2006-01-02 15:04 UTC"

const noURL = "No URL"

// ParseFormat accepts a format name, case-insensitively. "md" is an alias of markdown.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		return Markdown, nil
	}
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want markdown, jsonl or csv)", shared.ErrInvalidArgument, s)
}

// sortedByName returns a copy of playlists ordered by name, then id.
func sortedByName(playlists []models.PlaylistRecord) []models.PlaylistRecord {
	out := slices.Clone(playlists)
	slices.SortStableFunc(out, func(a, b models.PlaylistRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// ExportToMarkdown lists playlists as "- [name](url) | tracks" lines under title, with
// a footer carrying the update time and the total.
func ExportToMarkdown(playlists []models.PlaylistRecord, title string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	buf.WriteString("Generated from Spinitron radio playlists - weekly aggregations of show episodes.\n\n")

	for _, p := range sortedByName(playlists) {
		url := p.ExternalURL
		if url == "" {
			url = noURL
		}
		fmt.Fprintf(&buf, "- [%s](%s) | %d\n", p.Name, url, p.TrackCount)
	}

	buf.WriteString("\n---\n")
	fmt.Fprintf(&buf, "*Last updated: %s*\n", now.UTC().Format(ReportTimeFormat))
	fmt.Fprintf(&buf, "*Total playlists: %d*\n", len(playlists))

	return buf.Bytes(), nil
}

// ExportToJSONL writes one JSON object per playlist.
func ExportToJSONL(playlists []models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, p := range sortedByName(playlists) {
		if err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("failed to encode playlist %s: %w", p.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts playlists to CSV with columns: ID, Name, URL, Tracks, Watermark
func ExportToCSV(playlists []models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "URL", "Tracks", "Watermark"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range sortedByName(playlists) {
		record := []string{
			p.ID,
			p.Name,
			p.ExternalURL,
			strconv.Itoa(p.TrackCount),
			strconv.FormatUint(p.Watermark, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Export renders playlists in format. title and now only apply to Markdown.
func Export(format Format, playlists []models.PlaylistRecord, title string, now time.Time) ([]byte, error) {
	switch format {
	case Markdown:
		return ExportToMarkdown(playlists, title, now)
	case JSONL:
		return ExportToJSONL(playlists)
	case CSV:
		return ExportToCSV(playlists)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Render writes the report to w.
func Render(w io.Writer, format Format, playlists []models.PlaylistRecord, title string, now time.Time) error {
	data, err := Export(format, playlists, title, now)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes the report to path, creating parent directories.
func WriteReport(path string, format Format, playlists []models.PlaylistRecord, title string, now time.Time) error {
	data, err := Export(format, playlists, title, now)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
