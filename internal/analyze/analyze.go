// Package analyze computes capture metadata from raw content plus the
// capture context. Every sub-analysis is independently best-effort: a
// signal that cannot be obtained yields an absent field, never an error.
package analyze

import (
	"image"
	"net/url"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marwick/shoebox/internal/models"
)

// storedURLLimit caps the URL list kept on the metadata record. The full
// detection set still decides whether the "links" tag is attached.
const storedURLLimit = 5

var urlRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"]+`)

// Analyzer derives CaptureMetadata records. Device identity is snapshotted
// once at construction; the clock is injectable for tests.
type Analyzer struct {
	deviceName string
	osVersion  string
	now        func() time.Time
}

// New creates an Analyzer using the host identity and wall clock.
func New() *Analyzer {
	host, _ := os.Hostname()
	return &Analyzer{
		deviceName: host,
		osVersion:  runtime.GOOS + "/" + runtime.GOARCH,
		now:        time.Now,
	}
}

// NewWithClock creates an Analyzer with a fixed identity and clock.
func NewWithClock(deviceName, osVersion string, now func() time.Time) *Analyzer {
	return &Analyzer{deviceName: deviceName, osVersion: osVersion, now: now}
}

// AnalyzeText produces the metadata record for a text capture. source may
// be nil when the trigger had no application context. tab carries the
// active browser tab and is honored only when tabOK is true and the source
// is a known browser.
func (a *Analyzer) AnalyzeText(text string, method models.CaptureMethod, source *models.SourceApp, tab models.TabInfo, tabOK bool) *models.CaptureMetadata {
	m := a.base(method, source)

	m.CharCount = utf8.RuneCountInString(text)
	m.WordCount = len(strings.Fields(text))
	m.Language = DetectLanguage(text)

	detected := detectURLs(text)
	if len(detected) > storedURLLimit {
		m.DetectedURLs = detected[:storedURLLimit]
	} else {
		m.DetectedURLs = detected
	}

	if tabOK && source != nil && isBrowser(source.BundleID) {
		m.URL = tab.URL
		m.Domain = bareDomain(tab.URL)
	}

	m.Tags = autoTags(source, len(detected) > 0, 0, 0)
	return m
}

// AnalyzeImage produces the metadata record for an image capture, reading
// pixel dimensions from the decoded image.
func (a *Analyzer) AnalyzeImage(img image.Image, method models.CaptureMethod, source *models.SourceApp) *models.CaptureMetadata {
	m := a.base(method, source)
	bounds := img.Bounds()
	m.ImageWidth = bounds.Dx()
	m.ImageHeight = bounds.Dy()
	m.Tags = autoTags(source, false, m.ImageWidth, m.ImageHeight)
	return m
}

func (a *Analyzer) base(method models.CaptureMethod, source *models.SourceApp) *models.CaptureMetadata {
	now := a.now()
	m := &models.CaptureMetadata{
		CapturedAt: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Timezone:   timezoneName(now),
		Method:     string(method),
		DeviceName: a.deviceName,
		OSVersion:  a.osVersion,
	}
	if source != nil {
		m.SourceApp = source.Name
		m.SourceBundle = source.BundleID
		m.WindowTitle = source.WindowTitle
	}
	return m
}

// detectURLs scans text for embedded http(s) URLs, stripping trailing
// punctuation that the scan tends to swallow.
func detectURLs(text string) []string {
	matches := urlRe.FindAllString(text, -1)
	var out []string
	for _, raw := range matches {
		u := strings.TrimRight(raw, ".,;:!?)]}")
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// bareDomain extracts the host from a URL, dropping a leading "www.".
func bareDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func timezoneName(now time.Time) string {
	name := now.Location().String()
	if name == "Local" || name == "" {
		name, _ = now.Zone()
	}
	return name
}
