// Package session decides whether the first-run window sizing applies. The
// window-state file itself belongs to the windowing toolkit and is never parsed here.
package session

import (
	"math"
	"os"
	"path/filepath"
)

// StateFileName is the toolkit's persisted window state inside the data dir.
const StateFileName = ".window-state.json"

// FirstRunFraction is the share of the display the first window occupies.
const FirstRunFraction = 0.75

// StatePath returns the window-state file path for dataDir.
func StatePath(dataDir string) string {
	return filepath.Join(dataDir, StateFileName)
}

// HasState reports whether a window-state file already exists.
func HasState(dataDir string) bool {
	_, err := os.Stat(StatePath(dataDir))
	return err == nil
}

// Display is a monitor in physical pixels.
type Display struct {
	X, Y          int
	Width, Height int
	Scale         float64
}

// Rect is a window frame in logical pixels.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// FirstRunGeometry sizes the window to 75% of the display's logical size and
// centers it. ok is false if the display has no usable size.
func FirstRunGeometry(d Display) (Rect, bool) {
	if d.Width <= 0 || d.Height <= 0 {
		return Rect{}, false
	}
	scale := d.Scale
	if scale <= 0 {
		scale = 1
	}
	lw := float64(d.Width) / scale
	lh := float64(d.Height) / scale
	w := math.Floor(lw * FirstRunFraction)
	h := math.Floor(lh * FirstRunFraction)
	return Rect{
		X:      float64(d.X)/scale + (lw-w)/2,
		Y:      float64(d.Y)/scale + (lh-h)/2,
		Width:  w,
		Height: h,
	}, true
}
