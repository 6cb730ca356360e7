// Package preview renders the frames a Spine view shows on hosts without the
// native runtime: a placeholder, the skeleton bounds with its animation
// names, a debug overlay, and an in-place error message.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	background  = gg.Hex("#1e1e24")
	boundsColor = gg.Hex("#4fc3f7")
	debugColor  = gg.RGB(1, 0, 0)
	textColor   = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	errorColor  = color.RGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff}
)

const (
	lineHeight = 16
	margin     = 8
)

// Skeleton describes what the skeleton frame draws.
type Skeleton struct {
	Width      float64
	Height     float64
	Skin       string
	Animations []string
}

// Placeholder renders the frame shown when no skeleton is attached.
func Placeholder(width, height int) (*image.RGBA, error) {
	dc := newContext(width, height)
	defer dc.Close()
	img := toRGBA(dc.Image())
	drawCentered(img, "No Skeleton", textColor)
	return img, nil
}

// SkeletonFrame renders the skeleton's bounds scaled to fit the frame, with
// its skin and animation names listed underneath.
func SkeletonFrame(width, height int, s Skeleton) (*image.RGBA, error) {
	dc := newContext(width, height)
	defer dc.Close()

	if s.Width > 0 && s.Height > 0 {
		avail := float64(min(width, height)) - 2*margin - 4*lineHeight
		if avail < 1 {
			avail = 1
		}
		scale := min(avail/s.Width, avail/s.Height)
		w, h := s.Width*scale, s.Height*scale
		x := (float64(width) - w) / 2
		y := (float64(height) - h) / 2
		dc.SetColor(boundsColor.Color())
		dc.SetLineWidth(2)
		dc.DrawRectangle(x, y, w, h)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke bounds: %w", err)
		}
		dc.DrawLine(x, y+h/2, x+w, y+h/2)
		dc.DrawLine(x+w/2, y, x+w/2, y+h)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke axes: %w", err)
		}
	}

	img := toRGBA(dc.Image())
	lines := []string{fmt.Sprintf("%gx%g", s.Width, s.Height)}
	if s.Skin != "" {
		lines = append(lines, "skin: "+s.Skin)
	}
	if len(s.Animations) > 0 {
		lines = append(lines, "animations: "+strings.Join(s.Animations, ", "))
	}
	drawLines(img, height-margin-lineHeight*len(lines), lines, textColor)
	return img, nil
}

// Error renders msg in place of the skeleton.
func Error(width, height int, msg string) (*image.RGBA, error) {
	dc := newContext(width, height)
	defer dc.Close()
	dc.SetColor(errorColor)
	dc.SetLineWidth(4)
	dc.DrawLine(margin, margin, float64(width-margin), float64(height-margin))
	dc.DrawLine(float64(width-margin), margin, margin, float64(height-margin))
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("stroke cross: %w", err)
	}
	img := toRGBA(dc.Image())
	drawLines(img, margin+lineHeight, []string{"Render error", msg}, errorColor)
	return img, nil
}

// DebugOverlay draws a red border, a "DEBUG MODE" label and the frame size
// over img.
func DebugOverlay(img *image.RGBA) (*image.RGBA, error) {
	b := img.Bounds()
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	dc.SetColor(debugColor.Color())
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, float64(b.Dx()-2), float64(b.Dy()-2))
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("stroke debug border: %w", err)
	}
	out := toRGBA(dc.Image())
	drawLines(out, margin+lineHeight, []string{"DEBUG MODE", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())}, debugColor.Color())
	return out, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func newContext(width, height int) *gg.Context {
	dc := gg.NewContext(max(width, 1), max(height, 1))
	dc.ClearWithColor(background)
	return dc
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func drawCentered(img *image.RGBA, s string, c color.Color) {
	d := drawer(img, c)
	w := d.MeasureString(s).Round()
	b := img.Bounds()
	d.Dot = fixed.P((b.Dx()-w)/2, b.Dy()/2)
	d.DrawString(s)
}

func drawLines(img *image.RGBA, top int, lines []string, c color.Color) {
	d := drawer(img, c)
	for i, line := range lines {
		d.Dot = fixed.P(margin, top+i*lineHeight)
		d.DrawString(line)
	}
}

func drawer(img *image.RGBA, c color.Color) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
}
