package experiment

import (
	"fmt"

	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/transmitter"
)

// Reporter reports on the state of an experiment
type Reporter interface {
	Report(iteration int) error
}

// diagramReporter renders the constellation diagram of a transmitter
// every n iterations
type diagramReporter struct {
	every   int
	tx      *transmitter.Transmitter
	diagram *constellation.Diagram
}

// NewDiagramReporter returns a Reporter which renders a constellation
// diagram of tx every n iterations. The evaluated symbol of each
// bit-vector, the ground truth of tx, and the symbols transmitted for
// the preamble of tx are drawn.
func NewDiagramReporter(n int, tx *transmitter.Transmitter,
	d *constellation.Diagram) (Reporter, error) {
	if n < 1 {
		return nil, fmt.Errorf("newDiagramReporter: n must be positive "+
			"\n\thave(%v)", n)
	}
	return &diagramReporter{every: n, tx: tx, diagram: d}, nil
}

// Report implements the Reporter interface
func (d *diagramReporter) Report(iteration int) error {
	if iteration%d.every != 0 {
		return nil
	}

	points, transmitted, err := d.tx.Report()
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if transmitted == nil {
		// A nil *mat.Dense is not a nil mat.Matrix
		return d.diagram.Render(iteration, points, d.tx.GroundTruth(), nil)
	}
	return d.diagram.Render(iteration, points, d.tx.GroundTruth(),
		transmitted)
}
