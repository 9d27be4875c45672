// Package models defines the domain types for Shoebox.
package models

import (
	"strings"
	"time"
)

// ItemType distinguishes the two on-disk capture representations.
type ItemType string

const (
	ItemText  ItemType = "text"
	ItemImage ItemType = "image"
)

// CapturedItem represents one capture on disk. The ID is the path of the
// backing file relative to the store root, which is unique by construction.
type CapturedItem struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// SidecarPath returns the path of the metadata sidecar for image items,
// or "" for text items (their metadata lives in the frontmatter block).
func (it *CapturedItem) SidecarPath() string {
	if it.Type != ItemImage {
		return ""
	}
	return strings.TrimSuffix(it.Path, ".png") + ".meta.yaml"
}

// DateFolder is a date partition: one directory per calendar day.
type DateFolder struct {
	Date      time.Time `json:"date"`
	Path      string    `json:"path"`
	ItemCount int       `json:"item_count"`
}

// PartitionName returns the canonical yyyy-MM-dd directory name.
func (f DateFolder) PartitionName() string {
	return f.Date.Format("2006-01-02")
}
