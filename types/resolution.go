// resolution.go defines the Resolution type.

package types

import (
	"fmt"
)

type Resolution struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r *Resolution) Parse(s string) error {
	_, err := fmt.Sscanf(s, "%dx%d", &r.Width, &r.Height)
	if err != nil {
		return fmt.Errorf("unable to parse resolution '%s': %w", s, err)
	}
	return nil
}

// ScaleToWidth returns the resolution with the given width and the height
// that keeps the aspect ratio (rounded to an even number, as most pixel
// formats require). A zero width, or a width not smaller than the current
// one, returns r as is.
func (r Resolution) ScaleToWidth(width uint32) Resolution {
	if width == 0 || width >= r.Width || r.Width == 0 {
		return r
	}
	height := uint64(r.Height) * uint64(width) / uint64(r.Width)
	height &^= 1
	if height == 0 {
		height = 2
	}
	return Resolution{
		Width:  width &^ 1,
		Height: uint32(height),
	}
}
