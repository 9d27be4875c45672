package analyze

import (
	"strings"

	"github.com/marwick/shoebox/internal/models"
)

// hdWidth/hdHeight are the thresholds for the "hd" image tag.
const (
	hdWidth  = 1920
	hdHeight = 1080
)

// appCategories maps bundle-identifier substrings to coarse source
// categories. Order matters: the first matching entry wins for a category,
// and categories are probed in this order.
var appCategories = []struct {
	category string
	needles  []string
}{
	{"web", []string{"safari", "chrome", "firefox", "arc", "brave", "edge", "opera", "vivaldi"}},
	{"chat", []string{"slack", "discord", "telegram", "whatsapp", "messages", "kakao"}},
	{"email", []string{"mail", "outlook", "spark", "airmail"}},
	{"notes", []string{"notes", "notion", "obsidian", "bear", "evernote"}},
	{"code", []string{"xcode", "vscode", "code", "jetbrains", "intellij", "goland", "sublime", "zed"}},
	{"design", []string{"figma", "sketch", "photoshop", "illustrator", "affinity"}},
	{"terminal", []string{"terminal", "iterm", "warp", "alacritty", "kitty", "ghostty"}},
}

// titleTopics maps window-title substrings to topic tags.
var titleTopics = []struct {
	needle string
	tag    string
}{
	{"github", "github"},
	{"stackoverflow", "stackoverflow"},
	{"documentation", "docs"},
	{"docs", "docs"},
	{"api", "api"},
}

// autoTags applies the ordered, cumulative tag rules and deduplicates the
// result: app category first, then window-title topics, then "links" for
// text with detected URLs, then "image"/"hd" for images.
func autoTags(source *models.SourceApp, hasLinks bool, imgWidth, imgHeight int) []string {
	var tags []string

	if source != nil {
		if cat := appCategory(source.BundleID); cat != "" {
			tags = append(tags, cat)
		}
		tags = append(tags, titleTags(source.WindowTitle)...)
	}
	if hasLinks {
		tags = append(tags, "links")
	}
	if imgWidth > 0 || imgHeight > 0 {
		tags = append(tags, "image")
		if imgWidth >= hdWidth || imgHeight >= hdHeight {
			tags = append(tags, "hd")
		}
	}

	return dedupe(tags)
}

func appCategory(bundleID string) string {
	id := strings.ToLower(bundleID)
	if id == "" {
		return ""
	}
	for _, entry := range appCategories {
		for _, needle := range entry.needles {
			if strings.Contains(id, needle) {
				return entry.category
			}
		}
	}
	return ""
}

func isBrowser(bundleID string) bool {
	return appCategory(bundleID) == "web"
}

func titleTags(title string) []string {
	t := strings.ToLower(title)
	if t == "" {
		return nil
	}
	var out []string
	for _, topic := range titleTopics {
		if strings.Contains(t, topic.needle) {
			out = append(out, topic.tag)
		}
	}
	return out
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
