// Package export renders a room's active strokes to a PDF snapshot, the
// supplemental "export the board" feature the original desktop client
// exposed as a File > Export action.
package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"canvasroom/internal/canvas"
	"canvasroom/internal/room"
)

// scale maps canvas pixel coordinates down onto an A4 page in millimeters.
const scale = 3.0

// PDF renders every active stroke in ops onto a single A4 page and writes
// it to w. Undone operations and clear markers are skipped — the export
// reflects what a client currently sees, not the full history.
func PDF(w io.Writer, ops []*room.Operation) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	for _, op := range ops {
		if op.Type != room.OpStroke || op.State != room.StateActive || op.Stroke == nil {
			continue
		}
		drawStroke(p, op.Stroke)
	}
	return p.Output(w)
}

func drawStroke(p *gofpdf.Fpdf, s *canvas.Stroke) {
	r, g, b := hexToRGB(s.Color)
	p.SetDrawColor(int(r), int(g), int(b))
	p.SetLineWidth(float64(s.Width) / scale)

	for i := 1; i < len(s.Points); i++ {
		p.Line(
			s.Points[i-1].X/scale, s.Points[i-1].Y/scale,
			s.Points[i].X/scale, s.Points[i].Y/scale,
		)
	}
}

// hexToRGB parses a "#rrggbb" string, defaulting to black on any failure —
// a malformed color must never abort the whole export.
func hexToRGB(hex string) (r, g, b uint8) {
	c, err := parseHexColor(hex)
	if err != nil {
		return 0, 0, 0
	}
	return c.R, c.G, c.B
}

func parseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	c.A = 0xff
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("export: malformed color %q", s)
	}
	_, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	return c, err
}
