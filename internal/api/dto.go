package api

import (
	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/models"
)

// CaptureTextRequest is the request body for capturing text through the API.
// Everything except content is optional context describing where the capture
// came from.
type CaptureTextRequest struct {
	Content     string `json:"content"`
	Method      string `json:"method,omitempty"`
	SourceApp   string `json:"source_app,omitempty"`
	BundleID    string `json:"bundle_id,omitempty"`
	WindowTitle string `json:"window_title,omitempty"`
	TabURL      string `json:"tab_url,omitempty"`
}

// CaptureClipboardRequest is the request body for a clipboard capture.
type CaptureClipboardRequest struct {
	Method      string `json:"method,omitempty"`
	SourceApp   string `json:"source_app,omitempty"`
	BundleID    string `json:"bundle_id,omitempty"`
	WindowTitle string `json:"window_title,omitempty"`
	TabURL      string `json:"tab_url,omitempty"`
}

// EditItemRequest is the request body for replacing a text item's body.
type EditItemRequest struct {
	Content string `json:"content"`
}

// ItemDetail is the full item response type (aliased from the domain layer).
type ItemDetail = itemservice.ItemDetail

// ItemSummary is a lightweight item in a list response (aliased from the
// domain layer).
type ItemSummary = itemservice.ItemSummary

// PartitionInfo is one date partition in a listing.
type PartitionInfo struct {
	Date      string `json:"date"`
	ItemCount int    `json:"item_count"`
}

// PartitionListResponse wraps partition listings.
type PartitionListResponse struct {
	Partitions []PartitionInfo `json:"partitions"`
}

// ItemListResponse wraps item listings.
type ItemListResponse struct {
	Items []ItemSummary `json:"items"`
	Total int           `json:"total"`
}

// sourceApp builds the optional capture source from request fields. Returns
// nil when the caller supplied no source context at all.
func sourceApp(name, bundleID, windowTitle string) *models.SourceApp {
	if name == "" && bundleID == "" && windowTitle == "" {
		return nil
	}
	return &models.SourceApp{Name: name, BundleID: bundleID, WindowTitle: windowTitle}
}
