package capture

import (
	"bytes"
	"image"
	"image/png"
	"os/exec"
)

// SystemClipboard reads the system clipboard by shelling out to pbpaste
// (text) and pngpaste (image). Both are best-effort: a missing binary or
// an empty clipboard reports ok=false.
type SystemClipboard struct{}

// Available reports whether at least the text side of the clipboard can be
// read on this system.
func (SystemClipboard) Available() bool {
	_, err := exec.LookPath("pbpaste")
	return err == nil
}

// ReadText returns the clipboard's text content, if any.
func (SystemClipboard) ReadText() (string, bool) {
	out, err := exec.Command("pbpaste").Output()
	if err != nil || len(out) == 0 {
		return "", false
	}
	return string(out), true
}

// ReadImage returns the clipboard's image content, if any. Requires the
// pngpaste utility.
func (SystemClipboard) ReadImage() (image.Image, bool) {
	out, err := exec.Command("pngpaste", "-").Output()
	if err != nil || len(out) == 0 {
		return nil, false
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, false
	}
	return img, true
}
