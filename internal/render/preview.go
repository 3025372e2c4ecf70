package render

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Preview returns a horizontally mirrored copy of frame, the surface the
// overlay is drawn on. The caller owns the result.
func Preview(frame *gocv.Mat) gocv.Mat {
	mirrored := gocv.NewMat()
	if frame == nil || frame.Empty() {
		return mirrored
	}
	gocv.Flip(*frame, &mirrored, 1)
	return mirrored
}

// EncodeJPEG encodes img for streaming.
func EncodeJPEG(img *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
