package capture

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/marwick/shoebox/internal/checksum"
	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/models"
)

// ClipboardPoller captures clipboard content as it changes. Content is
// fingerprinted with SHA-256 so the same payload is never captured twice
// in a row; whatever is on the clipboard at startup is fingerprinted but
// not captured.
type ClipboardPoller struct {
	clip     itemservice.Clipboard
	sink     Sink
	interval time.Duration
	logger   *slog.Logger

	lastSum string
}

// NewClipboardPoller creates a poller. interval must be positive.
func NewClipboardPoller(clip itemservice.Clipboard, sink Sink, interval time.Duration, logger *slog.Logger) *ClipboardPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &ClipboardPoller{clip: clip, sink: sink, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled.
func (p *ClipboardPoller) Run(ctx context.Context) error {
	p.lastSum = p.fingerprint()
	p.logger.Info("clipboard poller: started", slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("clipboard poller: stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *ClipboardPoller) poll(ctx context.Context) {
	if text, ok := p.clip.ReadText(); ok && strings.TrimSpace(text) != "" {
		sum := checksum.Sum([]byte(text))
		if sum == p.lastSum {
			return
		}
		p.lastSum = sum
		item, err := p.sink.CaptureText(ctx, text, models.MethodClipboard, nil, models.TabInfo{}, false)
		if err != nil {
			p.logger.Warn("clipboard poller: capture text failed", slog.String("error", err.Error()))
			return
		}
		p.logger.Debug("clipboard poller: captured text", slog.String("path", item.Path))
		return
	}

	img, ok := p.clip.ReadImage()
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	sum := checksum.Sum(buf.Bytes())
	if sum == p.lastSum {
		return
	}
	p.lastSum = sum
	item, err := p.sink.CaptureImage(ctx, img, models.MethodClipboard, nil)
	if err != nil {
		p.logger.Warn("clipboard poller: capture image failed", slog.String("error", err.Error()))
		return
	}
	p.logger.Debug("clipboard poller: captured image", slog.String("path", item.Path))
}

// fingerprint hashes the current clipboard content so startup content is
// not re-captured.
func (p *ClipboardPoller) fingerprint() string {
	if text, ok := p.clip.ReadText(); ok && strings.TrimSpace(text) != "" {
		return checksum.Sum([]byte(text))
	}
	if img, ok := p.clip.ReadImage(); ok {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err == nil {
			return checksum.Sum(buf.Bytes())
		}
	}
	return ""
}
