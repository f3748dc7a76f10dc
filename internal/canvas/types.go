// Package canvas holds the wire-level drawing primitives shared between
// the room log and the session dispatcher. It carries no behavior beyond
// validation — mutation and ordering live in internal/room.
package canvas

import "fmt"

// Point is a single sample of a stroke, canvas-local.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
}

// Tool identifies how a stroke's points are meant to be rendered.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Stroke is a complete or in-progress freehand path.
type Stroke struct {
	Points     []Point `json:"points"`
	Color      string  `json:"color"`
	Width      int     `json:"width"`
	Tool       Tool    `json:"tool"`
	IsComplete bool    `json:"isComplete"`
}

// Validate rejects strokes that would violate the data model's bounds
// before they are ever appended to a log.
func (s Stroke) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("canvas: stroke has no points")
	}
	if s.Width < 1 || s.Width > 50 {
		return fmt.Errorf("canvas: stroke width %d out of range [1,50]", s.Width)
	}
	for _, p := range s.Points {
		if p.Pressure < 0 || p.Pressure > 1 {
			return fmt.Errorf("canvas: point pressure %v out of range [0,1]", p.Pressure)
		}
	}
	switch s.Tool {
	case ToolBrush, ToolEraser:
	default:
		return fmt.Errorf("canvas: unknown tool %q", s.Tool)
	}
	return nil
}

// ClearData is the payload recorded on a "clear" operation. It carries no
// fields today beyond what the audit trail on Operation already provides,
// but is a distinct type so the operation log's data union stays typed.
type ClearData struct{}
