package internal

import (
	"github.com/marwick/shoebox/internal/capture"
	"github.com/marwick/shoebox/internal/itemservice"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mcpMode   bool
	clipboard itemservice.Clipboard
	selection capture.SelectionSource
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCPMode switches the process to serve MCP over stdio instead of
// running the HTTP server and background triggers.
func WithMCPMode(enabled bool) Option {
	return func(a *application) {
		a.mcpMode = enabled
	}
}

// WithClipboard overrides the system clipboard implementation.
func WithClipboard(clip itemservice.Clipboard) Option {
	return func(a *application) {
		a.clipboard = clip
	}
}

// WithSelectionSource provides a selection source for the selection
// watcher. Without one the watcher stays off even when enabled in config.
func WithSelectionSource(src capture.SelectionSource) Option {
	return func(a *application) {
		a.selection = src
	}
}
