// Package display turns images into Multiverse panel frames and streams
// them to display controllers over TCP.
//
// A billboard is six 256x64 panels stacked vertically; content is
// authored as one 256x384 image and sliced into strips, one per
// controller.
package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// StripWidth and StripHeight are the dimensions of one panel.
	StripWidth  = 256
	StripHeight = 64

	// StripCount is the number of stacked panels in a billboard.
	StripCount = 6

	// FrameWidth and FrameHeight are the full billboard dimensions.
	FrameWidth  = StripWidth
	FrameHeight = StripHeight * StripCount
)

// Loader fetches and slices image sources. The daemon takes this as an
// interface so its loop is testable without files or a network.
type Loader interface {
	LoadStrips(ctx context.Context, source string) ([]*image.RGBA, error)
}

// HTTPLoader loads sources from local paths or http(s) URLs.
type HTTPLoader struct {
	// Client is used for URL sources. Nil means http.DefaultClient.
	Client *http.Client
}

// LoadStrips loads a source, resizes it to the billboard frame if
// needed, and slices it into StripCount strips, top to bottom.
func (l *HTTPLoader) LoadStrips(ctx context.Context, source string) ([]*image.RGBA, error) {
	img, err := l.load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("loading image from %q: %w", source, err)
	}
	return SliceFrame(img), nil
}

func (l *HTTPLoader) load(ctx context.Context, source string) (image.Image, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return l.fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func (l *HTTPLoader) fetch(ctx context.Context, source string) (image.Image, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	return img, err
}

// SliceFrame resizes img to FrameWidth x FrameHeight if necessary and
// returns its StripCount horizontal strips.
func SliceFrame(img image.Image) []*image.RGBA {
	frame := normalize(img)

	strips := make([]*image.RGBA, StripCount)
	for i := range strips {
		strip := image.NewRGBA(image.Rect(0, 0, StripWidth, StripHeight))
		draw.Draw(strip, strip.Bounds(), frame, image.Pt(0, i*StripHeight), draw.Src)
		strips[i] = strip
	}
	return strips
}

// normalize converts to RGBA at the billboard frame size, scaling with
// a Catmull-Rom kernel when the source has different dimensions.
func normalize(img image.Image) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	b := img.Bounds()
	if b.Dx() == FrameWidth && b.Dy() == FrameHeight {
		draw.Draw(frame, frame.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(frame, frame.Bounds(), img, b, draw.Src, nil)
	}
	return frame
}

// BlackStrip returns a single all-black panel, used to blank the
// billboard outside the active window.
func BlackStrip() *image.RGBA {
	strip := image.NewRGBA(image.Rect(0, 0, StripWidth, StripHeight))
	draw.Draw(strip, strip.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return strip
}
