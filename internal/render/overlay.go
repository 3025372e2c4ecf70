// Package render draws the hand skeleton overlay onto video frames.
package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/feedback"
	"github.com/ayusman/airkeys/internal/gesture"
)

// Edges connects landmark indices into finger and palm segments.
var Edges = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP}, {detector.PinkyDIP, detector.PinkyTip},
	{detector.Wrist, detector.PinkyMCP},
}

// Style holds the overlay look.
type Style struct {
	LineColor     color.RGBA
	LineAlpha     float64
	LineThickness int

	PointColor  color.RGBA
	PointRadius int

	TipColor  color.RGBA
	TipRadius int

	ActiveColor  color.RGBA
	ActiveRadius int
}

// DefaultStyle is translucent white bones, purple joints, pink fingertips
// and green fingertips while highlighted.
func DefaultStyle() Style {
	return Style{
		LineColor:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		LineAlpha:     0.6,
		LineThickness: 4,
		PointColor:    color.RGBA{R: 190, G: 50, B: 245, A: 255},
		PointRadius:   6,
		TipColor:      color.RGBA{R: 255, G: 80, B: 150, A: 255},
		TipRadius:     10,
		ActiveColor:   color.RGBA{R: 50, G: 255, B: 150, A: 255},
		ActiveRadius:  15,
	}
}

// Segment is one bone in pixel coordinates.
type Segment struct {
	From, To image.Point
}

// Dot is one landmark in pixel coordinates.
type Dot struct {
	Center image.Point
	Radius int
	Color  color.RGBA
}

// Plan is everything to draw for one frame. Segments go down first so dots
// sit on top of them.
type Plan struct {
	Segments []Segment
	Dots     []Dot
}

// Mirror converts a normalized landmark to pixel coordinates, flipping X to
// match a mirrored camera preview.
func Mirror(p detector.Point3D, width, height int) image.Point {
	return image.Point{
		X: int((1 - p.X) * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// Layout computes the drawing plan for hands on a width×height surface.
// Absent landmarks and segments touching them are left out.
func (s Style) Layout(hands []detector.HandLandmarks, active feedback.Set, width, height int) Plan {
	var plan Plan

	for handIndex := range hands {
		hand := &hands[handIndex]

		for _, edge := range Edges {
			from, ok := hand.Point(edge[0])
			if !ok {
				continue
			}
			to, ok := hand.Point(edge[1])
			if !ok {
				continue
			}
			plan.Segments = append(plan.Segments, Segment{
				From: Mirror(from, width, height),
				To:   Mirror(to, width, height),
			})
		}

		for i, p := range hand.Points {
			dot := Dot{Center: Mirror(p, width, height), Radius: s.PointRadius, Color: s.PointColor}
			if detector.IsFingerTip(i) {
				dot.Radius, dot.Color = s.TipRadius, s.TipColor
				if active.Has(gesture.FingerID{Hand: handIndex, Tip: i}) {
					dot.Radius, dot.Color = s.ActiveRadius, s.ActiveColor
				}
			}
			plan.Dots = append(plan.Dots, dot)
		}
	}

	return plan
}

// Renderer draws overlays with a fixed style.
type Renderer struct {
	style Style
}

// NewRenderer creates a Renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style {
	return r.style
}

// Render draws the skeleton of every hand onto dst, sized to dst.
func (r *Renderer) Render(dst *gocv.Mat, hands []detector.HandLandmarks, active feedback.Set) {
	if dst == nil || dst.Empty() || len(hands) == 0 {
		return
	}
	plan := r.style.Layout(hands, active, dst.Cols(), dst.Rows())
	r.Draw(dst, plan)
}

// Draw paints plan onto dst. Segments are blended at the style's line alpha.
func (r *Renderer) Draw(dst *gocv.Mat, plan Plan) {
	if len(plan.Segments) > 0 {
		layer := dst.Clone()
		for _, seg := range plan.Segments {
			gocv.Line(&layer, seg.From, seg.To, r.style.LineColor, r.style.LineThickness)
		}
		alpha := r.style.LineAlpha
		gocv.AddWeighted(layer, alpha, *dst, 1-alpha, 0, dst)
		layer.Close()
	}

	for _, dot := range plan.Dots {
		gocv.Circle(dst, dot.Center, dot.Radius, dot.Color, -1)
	}
}
