// Package capture hosts the background triggers that feed the store:
// a clipboard poller, a text-selection watcher, and an inbox directory
// ingestor for dropped files.
package capture

import (
	"context"
	"image"

	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/models"
)

// Sink receives captured content. *itemservice.Service satisfies it.
type Sink interface {
	CaptureText(ctx context.Context, text string, method models.CaptureMethod, source *models.SourceApp, tab models.TabInfo, tabOK bool) (*itemservice.ItemDetail, error)
	CaptureImage(ctx context.Context, img image.Image, method models.CaptureMethod, source *models.SourceApp) (*itemservice.ItemDetail, error)
	CaptureFile(ctx context.Context, srcPath string) (*itemservice.ItemDetail, error)
}
