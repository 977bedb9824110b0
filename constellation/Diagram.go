package constellation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
)

// Point is a labelled symbol of a constellation diagram
type Point struct {
	Label  string
	Re, Im float64
}

// Diagram renders constellation diagrams to PNG files. Evaluated
// symbols are drawn as labelled diamonds, ground-truth symbols as small
// dots, and transmitted symbols as translucent red dots, on a square
// view [-View, View]².
type Diagram struct {
	// Pattern is a fmt pattern of the file path taking the iteration
	// number, e.g. "figures/%04d.png"
	Pattern string
	Size    int
	View    float64
}

// NewDiagram returns a new Diagram with a 600 pixel wide view of
// [-3, 3]²
func NewDiagram(pattern string) *Diagram {
	return &Diagram{Pattern: pattern, Size: 600, View: 3}
}

// Filename returns the path of the diagram of an iteration
func (d *Diagram) Filename(iteration int) string {
	return fmt.Sprintf(d.Pattern, iteration)
}

// Render draws a constellation diagram and saves it for the argument
// iteration. Both truth and transmitted may be nil. Transmitted
// symbols are given one per row as (re, im).
func (d *Diagram) Render(iteration int, points []Point, truth Table,
	transmitted mat.Matrix) error {
	if d.Size < 1 || d.View <= 0 {
		return fmt.Errorf("render: invalid diagram size %v or view %v",
			d.Size, d.View)
	}

	size := float64(d.Size)
	toPixel := func(re, im float64) (float64, float64) {
		x := (re + d.View) / (2 * d.View) * size
		y := (d.View - im) / (2 * d.View) * size
		return x, y
	}

	dc := gg.NewContext(d.Size, d.Size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Axes
	dc.SetRGB(0.5, 0.5, 0.5)
	dc.SetLineWidth(1)
	dc.DrawLine(size/2, 0, size/2, size)
	dc.DrawLine(0, size/2, size, size/2)
	dc.Stroke()

	if transmitted != nil {
		if _, c := transmitted.Dims(); c != 2 {
			return fmt.Errorf("render: transmitted symbols must have 2 "+
				"columns \n\thave(%v)", c)
		}
		rows, _ := transmitted.Dims()
		dc.SetRGBA(1, 0, 0, 0.1)
		for i := 0; i < rows; i++ {
			x, y := toPixel(transmitted.At(i, 0), transmitted.At(i, 1))
			dc.DrawCircle(x, y, 4)
			dc.Fill()
		}
	}

	dc.SetRGB(0.5, 0, 0.5)
	for _, label := range truth.Labels() {
		s := truth[label]
		x, y := toPixel(real(s), imag(s))
		dc.DrawCircle(x, y, 2)
		dc.Fill()
	}

	for _, p := range points {
		x, y := toPixel(p.Re, p.Im)
		dc.DrawRegularPolygon(4, x, y, 6, 0)
		dc.Fill()
		dc.DrawString(p.Label, x+8, y-8)
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("Constellation Diagram", size/2, 12, 0.5, 0.5)

	filename := d.Filename(iteration)
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("render: could not create directory: %w", err)
		}
	}
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: could not save diagram: %w", err)
	}
	return nil
}
