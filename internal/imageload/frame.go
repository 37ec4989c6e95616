package imageload

import (
	"image"
	"sync"
)

// Frame is a concurrency-safe Surface that remembers what was drawn on it.
// OnChange, if set, is called after every update; it must not block.
type Frame struct {
	mu       sync.RWMutex
	img      image.Image
	opacity  float64
	OnChange func()
}

// NewFrame returns an empty, fully transparent frame.
func NewFrame(onChange func()) *Frame {
	return &Frame{OnChange: onChange}
}

func (f *Frame) SetOpacity(alpha float64) {
	f.mu.Lock()
	f.opacity = clamp01(alpha)
	f.mu.Unlock()
	f.changed()
}

func (f *Frame) SetImage(img image.Image) {
	f.mu.Lock()
	f.img = img
	f.mu.Unlock()
	f.changed()
}

// Snapshot returns the current image (nil until loaded) and opacity.
func (f *Frame) Snapshot() (image.Image, float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.img, f.opacity
}

func (f *Frame) changed() {
	if f.OnChange != nil {
		f.OnChange()
	}
}
