// Package ptzgeom converts a detection bounding box into pan/tilt/zoom commands.
package ptzgeom

import (
	"errors"
	"fmt"
)

// ErrInvalidFrameDimensions is returned when the frame width or height is not positive.
var ErrInvalidFrameDimensions = errors.New("invalid frame dimensions")

// ErrDegenerateBox is returned when the box has no positive extent on either axis.
var ErrDegenerateBox = errors.New("degenerate bounding box")

// Box is an axis-aligned rectangle in frame pixel coordinates.
type Box struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Width of the box in pixels.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height of the box in pixels.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Center returns the box center in pixel coordinates.
func (b Box) Center() (x, y float64) {
	return b.Left + b.Width()/2, b.Top + b.Height()/2
}

// Command is an absolute camera move: pan and tilt in degrees, zoom as a ratio.
type Command struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
	Zoom float64 `json:"zoom"`
}

// Home is the neutral camera position.
var Home = Command{Pan: 0, Tilt: 0, Zoom: 1}

// Compute returns the command that centers the camera on box and zooms to fit it.
//
//   - pan  = (center_x - width/2)  * 360 / width
//   - tilt = (center_y - height/2) * 180 / height
//   - zoom = height / (2 * max(box_w, box_h))
//
// The zoom ratio is anchored on the frame height in both branches; deployed
// cameras are calibrated against that behavior.
func Compute(box Box, width, height int) (Command, error) {
	if width <= 0 || height <= 0 {
		return Command{}, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidFrameDimensions)
	}

	if max(box.Width(), box.Height()) <= 0 {
		return Command{}, fmt.Errorf("%vx%v box: %w", box.Width(), box.Height(), ErrDegenerateBox)
	}

	w, h := float64(width), float64(height)
	cx, cy := box.Center()

	pan := (cx - w/2) * 360 / w
	tilt := (cy - h/2) * 180 / h

	var zoom float64
	if box.Width() > box.Height() {
		zoom = h / box.Width() / 2
	} else {
		zoom = h / box.Height() / 2
	}

	return Command{Pan: pan, Tilt: tilt, Zoom: zoom}, nil
}
