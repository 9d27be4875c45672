// Package frontmatter implements the delimited metadata block prefixed to
// text captures and stored verbatim in image sidecar files.
//
// The format is deliberately narrow: an opening "---" line, one
// `key: "value"` pair per line for scalars, an indented `- "item"` list for
// array fields, and a closing "---" line. Parsing is line-oriented and
// forgiving; unknown keys are skipped and missing keys load as absent
// fields.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/marwick/shoebox/internal/models"
)

// Marker delimits the metadata block.
const Marker = "---"

// storedURLLimit caps the detected-URL list at serialization time. Records
// with more detected URLs will not round-trip exactly; the overflow is
// dropped on write.
const storedURLLimit = 5

// Serialize renders the metadata block, markers included, ending with a
// newline. Absent (zero-valued) fields are omitted entirely rather than
// written as empty values.
func Serialize(m *models.CaptureMetadata) []byte {
	var b bytes.Buffer
	b.WriteString(Marker)
	b.WriteByte('\n')

	writeString(&b, "captured_at", m.CapturedAt)
	writeString(&b, "timezone", m.Timezone)
	writeString(&b, "capture_method", m.Method)
	writeString(&b, "source_app", m.SourceApp)
	writeString(&b, "source_bundle_id", m.SourceBundle)
	writeString(&b, "window_title", m.WindowTitle)
	writeString(&b, "url", m.URL)
	writeString(&b, "domain", m.Domain)
	writeInt(&b, "char_count", m.CharCount)
	writeInt(&b, "word_count", m.WordCount)
	writeString(&b, "language", m.Language)
	writeInt(&b, "image_width", m.ImageWidth)
	writeInt(&b, "image_height", m.ImageHeight)
	writeString(&b, "device_name", m.DeviceName)
	writeString(&b, "os_version", m.OSVersion)

	urls := m.DetectedURLs
	if len(urls) > storedURLLimit {
		urls = urls[:storedURLLimit]
	}
	writeList(&b, "detected_urls", urls)
	writeList(&b, "tags", m.Tags)

	b.WriteString(Marker)
	b.WriteByte('\n')
	return b.Bytes()
}

// Deserialize parses a metadata block from data, which may be a bare block
// or a full text-capture file (block + body). Returns ok=false when data
// does not start with an opening marker.
//
// A key whose own line carries no inline value introduces an array;
// subsequent `- ` lines accumulate into it. A scalar written with an empty
// value would be misread as an array key, but Serialize never emits empty
// scalars, so the ambiguity is unreachable through files we write ourselves.
func Deserialize(data []byte) (*models.CaptureMetadata, bool) {
	block, _ := Split(data)
	if block == nil {
		return nil, false
	}

	m := &models.CaptureMetadata{}
	var arrayTarget *[]string

	lines := strings.Split(string(block), "\n")
	// Skip the marker lines at either end.
	for _, line := range lines[1 : len(lines)-1] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "- ") {
			if arrayTarget != nil {
				*arrayTarget = append(*arrayTarget, unquote(strings.TrimPrefix(trimmed, "- ")))
			}
			continue
		}

		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "" {
			switch key {
			case "detected_urls":
				arrayTarget = &m.DetectedURLs
			case "tags":
				arrayTarget = &m.Tags
			default:
				arrayTarget = nil
			}
			continue
		}
		arrayTarget = nil
		setScalar(m, key, value)
	}

	return m, true
}

// Split separates a leading metadata block from the body. block is the raw
// block bytes including both marker lines and the trailing newline, or nil
// when data does not begin with an opening marker. The body has leading
// blank lines trimmed.
func Split(data []byte) (block []byte, body string) {
	marker := []byte(Marker + "\n")
	if !bytes.HasPrefix(data, marker) {
		return nil, string(data)
	}
	rest := data[len(marker):]
	end := findClosing(rest)
	if end < 0 {
		// No closing marker: treat everything as body.
		return nil, string(data)
	}
	blockLen := len(marker) + end
	return data[:blockLen], strings.TrimLeft(string(data[blockLen:]), "\n")
}

// findClosing returns the offset just past the closing marker line within
// rest, or -1 when absent.
func findClosing(rest []byte) int {
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = rest[offset:]
		}
		if string(line) == Marker {
			return next
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return -1
}

func setScalar(m *models.CaptureMetadata, key, value string) {
	switch key {
	case "captured_at":
		m.CapturedAt = unquote(value)
	case "timezone":
		m.Timezone = unquote(value)
	case "capture_method":
		m.Method = unquote(value)
	case "source_app":
		m.SourceApp = unquote(value)
	case "source_bundle_id":
		m.SourceBundle = unquote(value)
	case "window_title":
		m.WindowTitle = unquote(value)
	case "url":
		m.URL = unquote(value)
	case "domain":
		m.Domain = unquote(value)
	case "language":
		m.Language = unquote(value)
	case "device_name":
		m.DeviceName = unquote(value)
	case "os_version":
		m.OSVersion = unquote(value)
	case "char_count":
		m.CharCount, _ = strconv.Atoi(value)
	case "word_count":
		m.WordCount, _ = strconv.Atoi(value)
	case "image_width":
		m.ImageWidth, _ = strconv.Atoi(value)
	case "image_height":
		m.ImageHeight, _ = strconv.Atoi(value)
	}
}

func writeString(b *bytes.Buffer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", key, quote(value))
}

func writeInt(b *bytes.Buffer, key string, value int) {
	if value == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %d\n", key, value)
}

func writeList(b *bytes.Buffer, key string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", key)
	for _, v := range values {
		fmt.Fprintf(b, "  - %s\n", quote(v))
	}
}

// quote wraps a value in double quotes, escaping backslash, quote, and
// newline so every scalar stays on one line.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(inner[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
