package colors

import (
	"image/color"

	"sparkfx/internal/fxerr"
)

// Gradient interpolates between anchors into exactly steps colours.
//
// Without loop the output runs from the first anchor to the last over
// len(anchors)-1 segments. With loop a wrap segment from the last anchor
// back to the first is added and the sequence is cyclic: one more step past
// the end would land on anchors[0] again.
func Gradient(anchors []color.NRGBA, steps int, loop bool) ([]color.NRGBA, error) {
	if len(anchors) < 2 {
		return nil, fxerr.Invalid("gradient needs at least 2 anchors, got %d", len(anchors))
	}
	if steps < 1 {
		return nil, fxerr.Invalid("gradient steps must be positive, got %d", steps)
	}

	segments := len(anchors) - 1
	if loop {
		segments = len(anchors)
	}

	out := make([]color.NRGBA, steps)
	for i := range out {
		var u float64
		switch {
		case loop:
			u = float64(i*segments) / float64(steps)
		case steps > 1:
			u = float64(i*segments) / float64(steps-1)
		}

		k := int(u)
		if k >= segments {
			k = segments - 1
		}
		out[i] = Lerp(anchors[k], anchors[(k+1)%len(anchors)], u-float64(k))
	}
	return out, nil
}

// GradientOf parses the anchor specs and builds the gradient.
func GradientOf(steps int, loop bool, specs ...string) ([]color.NRGBA, error) {
	anchors, err := ParseAll(specs...)
	if err != nil {
		return nil, err
	}
	return Gradient(anchors, steps, loop)
}
