package mcpserver

// CaptureFormatContract describes the on-disk format of captured items for
// LLM consumers reading or interpreting capture files.
const CaptureFormatContract = `# Shoebox Capture Format

Captured items live in date partitions under the store root:

` + "```" + `
<root>/<yyyy-MM-dd>/<HH-mm-ss>-<mmm>.md         text capture
<root>/<yyyy-MM-dd>/<HH-mm-ss>-<mmm>.png        image capture
<root>/<yyyy-MM-dd>/<HH-mm-ss>-<mmm>.meta.yaml  image metadata sidecar
` + "```" + `

A ` + "`" + `-<n>` + "`" + ` suffix is appended when two captures land in the
same millisecond.

## Text captures

` + "```" + `markdown
---
captured_at: "2025-01-02T03:04:05.678Z"
timezone: "Europe/Berlin"
capture_method: "clipboard"
source_app: "Safari"
source_bundle_id: "com.apple.Safari"
window_title: "Example – page"
url: "https://example.com/page"
domain: "example.com"
char_count: "42"
word_count: "7"
language: "en"
detected_urls:
  - "https://example.com/page"
tags:
  - "web"
  - "links"
---
Captured body text follows the metadata block.
` + "```" + `

## Rules

1. The metadata block is delimited by ` + "`" + `---` + "`" + ` lines and comes first.
2. All values are double-quoted scalars; ` + "`" + `detected_urls` + "`" + ` and
   ` + "`" + `tags` + "`" + ` are string arrays. Absent facts are omitted, never empty.
3. ` + "`" + `captured_at` + "`" + ` is UTC with millisecond precision;
   ` + "`" + `timezone` + "`" + ` names the local zone at capture time.
4. ` + "`" + `capture_method` + "`" + ` is one of: hotkey, quick-note,
   screenshot-partial, screenshot-full, drag-drop, selection, clipboard, unknown.
5. At most five ` + "`" + `detected_urls` + "`" + ` are stored.
6. Image captures carry the same block in the ` + "`" + `.meta.yaml` + "`" + ` sidecar,
   plus ` + "`" + `image_width` + "`" + ` and ` + "`" + `image_height` + "`" + `.
7. The file on disk is the source of truth; the search index is derived.
`
