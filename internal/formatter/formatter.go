// package formatter renders slot assignments, the slot catalog, pack contents and build history as text, JSON,
// YAML, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/pack"
	"github.com/desertthunder/discpack/internal/shared"
	"gopkg.in/yaml.v3"
)

// Supported output formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat validates a --format value. Blank selects text.
func ParseFormat(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	for _, f := range Formats {
		if s == f {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, s, strings.Join(Formats, ", "))
}

// Report is an assignment preview: the pairs in match order and the tracks that found no slot.
type Report struct {
	Assignments []models.Assignment `json:"assignments" yaml:"assignments"`
	Dropped     []models.Track      `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// Render encodes the report in format.
func (r Report) Render(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(r, true)
	case FormatYAML:
		return yaml.Marshal(r)
	case FormatCSV:
		return AssignmentsToCSV(r.Assignments)
	case FormatMarkdown:
		return AssignmentsToMarkdown(r.Assignments, r.Dropped), nil
	default:
		return AssignmentsToText(r.Assignments, r.Dropped), nil
	}
}

// AssignmentsToCSV converts assignments to CSV with columns: Slot, Slot Duration, Track, Track Duration, Difference
func AssignmentsToCSV(assignments []models.Assignment) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Slot", "Slot Duration", "Track", "Track Duration", "Difference"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range assignments {
		record := []string{
			a.Slot.Name,
			strconv.Itoa(a.SlotDuration),
			a.Track.Name,
			strconv.FormatFloat(a.TrackDuration, 'f', 2, 64),
			strconv.FormatFloat(a.Difference, 'f', 2, 64),
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

// AssignmentsToText renders an aligned table. Slots shorter than their track are flagged with "!".
func AssignmentsToText(assignments []models.Assignment, dropped []models.Track) []byte {
	var buf bytes.Buffer

	width := len("Track")
	for _, a := range assignments {
		width = max(width, len(a.Track.DisplayName()))
	}

	fmt.Fprintf(&buf, "%-18s %-*s %7s %7s %8s\n", "Slot", width, "Track", "Track", "Slot", "Diff")
	for _, a := range assignments {
		flag := " "
		if a.Shortfall() {
			flag = "!"
		}
		fmt.Fprintf(&buf, "%-18s %-*s %7s %7s %8s%s\n",
			a.Slot.Name, width, a.Track.DisplayName(),
			shared.FormatDuration(a.TrackDuration),
			shared.FormatDuration(float64(a.SlotDuration)),
			SignedDuration(a.Difference), flag)
	}

	for _, tr := range dropped {
		fmt.Fprintf(&buf, "dropped: %s (%s)\n", tr.DisplayName(), shared.FormatDuration(tr.Duration))
	}

	return buf.Bytes()
}

// AssignmentsToMarkdown renders assignments as a Markdown table.
func AssignmentsToMarkdown(assignments []models.Assignment, dropped []models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString("| # | Slot | Track | Track Length | Slot Length | Difference |\n")
	buf.WriteString("|---|------|-------|--------------|-------------|------------|\n")
	for i, a := range assignments {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n", i+1, a.Slot.Name, a.Track.DisplayName(),
			shared.FormatDuration(a.TrackDuration), shared.FormatDuration(float64(a.SlotDuration)), SignedDuration(a.Difference))
	}

	if len(dropped) > 0 {
		buf.WriteString("\n**Dropped**:\n\n")
		for _, tr := range dropped {
			fmt.Fprintf(&buf, "- %s [%s]\n", tr.DisplayName(), shared.FormatDuration(tr.Duration))
		}
	}

	return buf.Bytes()
}

// SignedDuration formats a difference in seconds with an explicit sign, e.g. "+0:05" or "-1:10".
func SignedDuration(seconds float64) string {
	if seconds < 0 {
		return shared.FormatDuration(seconds)
	}
	return "+" + shared.FormatDuration(seconds)
}

// SlotsToText lists the catalog in reference order.
func SlotsToText(slots []models.Slot) []byte {
	var buf bytes.Buffer
	for i, s := range slots {
		fmt.Fprintf(&buf, "%2d. %-18s %s\n", i+1, s.Name, shared.FormatDuration(float64(s.Duration)))
	}
	return buf.Bytes()
}

// RenderSlots encodes the catalog in format.
func RenderSlots(slots []models.Slot, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(slots, true)
	case FormatYAML:
		return yaml.Marshal(slots)
	case FormatCSV:
		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		writer.Write([]string{"Slot", "Duration"})
		for _, s := range slots {
			writer.Write([]string{s.Name, strconv.Itoa(s.Duration)})
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("CSV writer error: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return SlotsToText(slots), nil
	}
}

// ContentsToText describes an existing pack.
func ContentsToText(c *pack.Contents) []byte {
	var buf bytes.Buffer

	if c.HasManifest {
		fmt.Fprintf(&buf, "Pack: %s\n", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&buf, "Description: %s\n", c.Description)
		}
		if c.Version != nil {
			fmt.Fprintf(&buf, "Version: %s\n", models.Version(*c.Version))
		}
		if c.HeaderUUID != "" {
			fmt.Fprintf(&buf, "UUID: %s\n", c.HeaderUUID)
		}
		fmt.Fprintf(&buf, "Modules: %d\n", c.Modules)
	} else {
		buf.WriteString("Pack: (no manifest)\n")
	}
	fmt.Fprintf(&buf, "Icon: %s\n", yesNo(len(c.Icon) > 0))
	fmt.Fprintf(&buf, "Records: %d\n\n", len(c.Records))

	for i, r := range c.Records {
		fmt.Fprintf(&buf, "%d. %-18s %s (%d bytes)\n", i+1, r.Slot, r.Path, len(r.Track.Payload))
	}

	return buf.Bytes()
}

// RenderContents encodes pack contents in format.
func RenderContents(c *pack.Contents, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(c, true)
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return ContentsToText(c), nil
	}
}

// HistoryToText lists recorded builds, newest first.
func HistoryToText(builds []*models.PersistedBuild) []byte {
	var buf bytes.Buffer

	if len(builds) == 0 {
		buf.WriteString("No builds recorded\n")
		return buf.Bytes()
	}

	for _, b := range builds {
		fmt.Fprintf(&buf, "#%-4d %s  %s v%s  %d tracks  icon:%s  %s\n",
			b.Sequence(), b.CreatedAt().Format("2006-01-02 15:04"), b.Name(), b.Version(),
			b.TrackCount(), yesNo(b.HasIcon()), b.OutputPath())
	}

	return buf.Bytes()
}

// BuildToText describes a single recorded build with its records.
func BuildToText(b *models.PersistedBuild) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Build #%d: %s v%s\n", b.Sequence(), b.Name(), b.Version())
	if b.Description() != "" {
		fmt.Fprintf(&buf, "Description: %s\n", b.Description())
	}
	fmt.Fprintf(&buf, "Created: %s\n", b.CreatedAt().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "Output: %s (%d bytes)\n\n", b.OutputPath(), b.SizeBytes())

	for _, r := range b.Records() {
		fmt.Fprintf(&buf, "%2d. %-18s %s [%s]\n", r.Position+1, r.Slot, r.TrackName, shared.FormatDuration(r.TrackDuration))
	}

	return buf.Bytes()
}

// WriteReport renders the report in format and writes it to path.
func WriteReport(r Report, format, path string) error {
	data, err := r.Render(format)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
