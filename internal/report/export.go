// Package report writes research reports to disk as Markdown, HTML or PDF.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ResearchDesk/internal/model"

	"github.com/rs/zerolog/log"
)

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ParseFormats parses a comma separated list such as "md,html,pdf".
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		switch f {
		case "":
			continue
		case "markdown":
			f = FormatMarkdown
		case FormatMarkdown, FormatHTML, FormatPDF:
		default:
			return nil, fmt.Errorf("unknown export format %q", part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Exporter writes reports under Dir.
type Exporter struct {
	Dir string
	Now func() time.Time
}

func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir, Now: time.Now}
}

// BaseName returns the file stem for a report, e.g. report_AAPL_MSFT_20250101_093000.
func BaseName(tickers []string, at time.Time) string {
	name := "report"
	if len(tickers) > 0 {
		name += "_" + strings.ToUpper(strings.Join(tickers, "_"))
	}
	return name + "_" + at.Format("20060102_150405")
}

// Export writes the report in every requested format and returns the paths written.
func (e *Exporter) Export(rep *model.ResearchReport, formats []Format) ([]string, error) {
	if len(formats) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	base := filepath.Join(e.Dir, BaseName(rep.Tickers, now()))
	title := "Financial Research Report"
	if len(rep.Tickers) > 0 {
		title += ": " + strings.Join(rep.Tickers, ", ")
	}

	var paths []string
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case FormatMarkdown:
			data = []byte(rep.Markdown)
		case FormatHTML:
			data, err = RenderHTML(rep.Markdown, title)
		case FormatPDF:
			data, err = RenderPDF(rep.Markdown, title)
		default:
			err = fmt.Errorf("unknown export format %q", f)
		}
		if err != nil {
			return paths, err
		}

		path := base + "." + string(f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		log.Info().Str("path", path).Int("bytes", len(data)).Msg("report exported")
		paths = append(paths, path)
	}
	return paths, nil
}
