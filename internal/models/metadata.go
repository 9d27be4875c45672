package models

// CaptureMethod enumerates the origin of a capture.
type CaptureMethod string

const (
	MethodHotkey            CaptureMethod = "hotkey"
	MethodQuickNote         CaptureMethod = "quick-note"
	MethodScreenshotPartial CaptureMethod = "screenshot-partial"
	MethodScreenshotFull    CaptureMethod = "screenshot-full"
	MethodDragDrop          CaptureMethod = "drag-drop"
	MethodSelection         CaptureMethod = "selection"
	MethodClipboard         CaptureMethod = "clipboard"
	MethodUnknown           CaptureMethod = "unknown"
)

// ParseCaptureMethod maps a string to a known method, defaulting to unknown.
func ParseCaptureMethod(s string) CaptureMethod {
	switch CaptureMethod(s) {
	case MethodHotkey, MethodQuickNote, MethodScreenshotPartial,
		MethodScreenshotFull, MethodDragDrop, MethodSelection, MethodClipboard:
		return CaptureMethod(s)
	}
	return MethodUnknown
}

// DisplayName returns the human-facing label used in display tags.
func (m CaptureMethod) DisplayName() string {
	switch m {
	case MethodHotkey:
		return "Hotkey"
	case MethodQuickNote:
		return "Quick Note"
	case MethodScreenshotPartial:
		return "Screenshot (Area)"
	case MethodScreenshotFull:
		return "Screenshot (Full)"
	case MethodDragDrop:
		return "Drag & Drop"
	case MethodSelection:
		return "Selection"
	case MethodClipboard:
		return "Clipboard"
	}
	return "Unknown"
}

// SourceApp identifies the application a capture came from.
type SourceApp struct {
	Name        string `json:"name"`
	BundleID    string `json:"bundle_id"`
	WindowTitle string `json:"window_title,omitempty"`
}

// TabInfo carries the active browser tab's URL when the trigger could
// obtain it. Callers receive it alongside an explicit ok flag rather than
// a nilable pointer, so absence has to be handled consciously.
type TabInfo struct {
	URL string
}

// CaptureMetadata is the descriptive record attached to a CapturedItem.
// Fields are optional; the zero value means absent and is omitted on
// serialization. It is computed once at capture time and never recomputed
// (editing text content does not touch metadata).
type CaptureMetadata struct {
	CapturedAt   string   `json:"captured_at,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Method       string   `json:"capture_method,omitempty"`
	SourceApp    string   `json:"source_app,omitempty"`
	SourceBundle string   `json:"source_bundle_id,omitempty"`
	WindowTitle  string   `json:"window_title,omitempty"`
	URL          string   `json:"url,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	CharCount    int      `json:"char_count,omitempty"`
	WordCount    int      `json:"word_count,omitempty"`
	Language     string   `json:"language,omitempty"`
	DetectedURLs []string `json:"detected_urls,omitempty"`
	ImageWidth   int      `json:"image_width,omitempty"`
	ImageHeight  int      `json:"image_height,omitempty"`
	DeviceName   string   `json:"device_name,omitempty"`
	OSVersion    string   `json:"os_version,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// TagSet returns the derived set used for tag filtering and display:
// source app name, capture-method display name, domain, and each auto tag.
func (m *CaptureMetadata) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.Tags)+3)
	if m.SourceApp != "" {
		set[m.SourceApp] = struct{}{}
	}
	if m.Method != "" {
		set[ParseCaptureMethod(m.Method).DisplayName()] = struct{}{}
	}
	if m.Domain != "" {
		set[m.Domain] = struct{}{}
	}
	for _, t := range m.Tags {
		set[t] = struct{}{}
	}
	return set
}

// DisplayTag is a UI-facing projection of a metadata field. Derived, not
// persisted.
type DisplayTag struct {
	Label    string `json:"label"`
	Category string `json:"category"` // "app", "method", "domain", or "auto"
}

// DisplayTags projects the metadata into its display tags. The result is
// deterministic for identical metadata: fixed category order, auto tags in
// stored order.
func (m *CaptureMetadata) DisplayTags() []DisplayTag {
	var out []DisplayTag
	if m.SourceApp != "" {
		out = append(out, DisplayTag{Label: m.SourceApp, Category: "app"})
	}
	if m.Method != "" {
		out = append(out, DisplayTag{Label: ParseCaptureMethod(m.Method).DisplayName(), Category: "method"})
	}
	if m.Domain != "" {
		out = append(out, DisplayTag{Label: m.Domain, Category: "domain"})
	}
	for _, t := range m.Tags {
		out = append(out, DisplayTag{Label: t, Category: "auto"})
	}
	return out
}
