// Package export renders a finished transcription into the downloadable
// artifacts offered by the web page: plain text, SRT subtitles, and a
// Word document. Renderers are pure functions of the result, so exporting
// the same result twice yields byte-identical files.
package export

import (
	"fmt"
	"strings"

	"github.com/tolka/tolka/internal/whisper"
)

// Format identifies a download artifact.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatDocx Format = "docx"
)

// Formats lists the supported formats in the order the page offers them.
func Formats() []Format {
	return []Format{FormatText, FormatSRT, FormatDocx}
}

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatText:
		return FormatText, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatDocx:
		return FormatDocx, nil
	}

	return "", fmt.Errorf("unknown export format %q", value)
}

// Filename returns the download name for a format.
func Filename(f Format) string {
	return "transcription." + string(f)
}

func ContentType(f Format) string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain"
	}
}

// Render produces the artifact bytes for a format.
func Render(f Format, result whisper.Result) ([]byte, error) {
	switch f {
	case FormatText:
		return Text(result), nil
	case FormatSRT:
		return SRT(result), nil
	case FormatDocx:
		return Docx(result)
	}

	return nil, fmt.Errorf("unknown export format %q", f)
}

// Text returns the full transcription text verbatim.
func Text(result whisper.Result) []byte {
	return []byte(result.Text)
}

// SRT renders one numbered subtitle block per segment. Block order follows
// segment order, counters start at 1, and segment text is trimmed of the
// surrounding whitespace the engine emits.
func SRT(result whisper.Result) []byte {
	blocks := make([]string, 0, len(result.Segments))
	for i, seg := range result.Segments {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1,
			FormatTimestamp(seg.Start),
			FormatTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
		))
	}

	return []byte(strings.Join(blocks, "\n"))
}
