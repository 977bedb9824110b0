package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Reward tracks and saves the mean reward of each iteration of an
// experiment. Every n iterations, the mean of the rewards tracked over
// those n iterations is stored.
type Reward struct {
	lastIteration int
	every         int
	sum           float64
	count         int
	rewards       []float64
	filename      string
}

// NewReward creates and returns a new *Reward Tracker which stores the
// average of the mean rewards of every n iterations
func NewReward(filename string, n int) (*Reward, error) {
	if n < 1 {
		return nil, fmt.Errorf("newReward: n must be positive \n\thave(%v)",
			n)
	}
	return &Reward{lastIteration: -1, every: n, filename: filename}, nil
}

// Track tracks the mean reward of an iteration.
//
// Track returns an error if it is called for non-sequential iterations
func (r *Reward) Track(iteration int, meanReward float64) error {
	// Ensure that Track is called on sequential iterations
	if r.lastIteration+1 != iteration {
		return fmt.Errorf("track: last two iterations tracked are not "+
			"sequential: iteration %v --> iteration %v were tracked",
			r.lastIteration, iteration)
	}
	r.lastIteration = iteration

	r.sum += meanReward
	r.count++
	if r.count == r.every {
		r.rewards = append(r.rewards, r.sum/float64(r.count))
		r.sum, r.count = 0, 0
	}
	return nil
}

// Data returns a copy of the tracked data
func (r *Reward) Data() []float64 {
	return append([]float64(nil), r.rewards...)
}

// Save saves the data tracked by the Reward Tracker to disk.
func (r *Reward) Save() error {
	// Open the file to save to
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	// Encode and save the file
	en := gob.NewEncoder(file)
	if err = en.Encode(r.rewards); err != nil {
		return fmt.Errorf("save: could not encode reward data: %w", err)
	}
	return nil
}
