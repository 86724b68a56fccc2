package raster

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Offset selects the anchor inside each cell whose map coordinate
// represents the cell.
type Offset int

const (
	Center Offset = iota
	UpperLeft
	UpperRight
	LowerLeft
	LowerRight
)

var offsetNames = map[Offset]string{
	Center:     "center",
	UpperLeft:  "ul",
	UpperRight: "ur",
	LowerLeft:  "ll",
	LowerRight: "lr",
}

var offsetAliases = map[string]Offset{
	"center":      Center,
	"ul":          UpperLeft,
	"upper-left":  UpperLeft,
	"upperleft":   UpperLeft,
	"ur":          UpperRight,
	"upper-right": UpperRight,
	"upperright":  UpperRight,
	"ll":          LowerLeft,
	"lower-left":  LowerLeft,
	"lowerleft":   LowerLeft,
	"lr":          LowerRight,
	"lower-right": LowerRight,
	"lowerright":  LowerRight,
}

func (o Offset) String() string {
	if s, ok := offsetNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Offset(%d)", int(o))
}

// Delta returns the (column, row) shift of the anchor within a cell.
func (o Offset) Delta() (float64, float64) {
	switch o {
	case UpperLeft:
		return 0, 0
	case UpperRight:
		return 1, 0
	case LowerLeft:
		return 0, 1
	case LowerRight:
		return 1, 1
	default:
		return 0.5, 0.5
	}
}

func ParseOffset(name string) (Offset, error) {
	o, ok := offsetAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, name)
	}
	return o, nil
}

// Sample returns one map coordinate and value per cell of the band. Cells
// are visited column by column, top to bottom within each column.
func Sample(ds *Dataset, band int, off Offset) ([]orb.Point, []float64, error) {
	grid, err := ds.Read(band)
	if err != nil {
		return nil, nil, err
	}
	w, h := ds.Width(), ds.Height()
	t := ds.Transform().Translate(off.Delta())

	points := make([]orb.Point, 0, w*h)
	values := make([]float64, 0, w*h)
	for c := 0; c < w; c++ {
		for r := 0; r < h; r++ {
			points = append(points, t.Apply(float64(c), float64(r)))
			values = append(values, grid[r*w+c])
		}
	}
	return points, values, nil
}
