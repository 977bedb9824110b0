package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/experiment"
	"github.com/samuelfneumann/neuraltx/utils/matutils"
	"github.com/samuelfneumann/neuraltx/utils/progressbar"
)

// progress displays the mean reward of each iteration on a progress
// bar
type progress struct {
	bar *progressbar.ManualProgressBar
}

func (p *progress) Track(iteration int, meanReward float64) error {
	p.bar.Increment()
	p.bar.SetStatus("iteration: %v | reward: %.4f", iteration, meanReward)
	p.bar.Display()
	return nil
}

func (p *progress) Save() error {
	return nil
}

func main() {
	configFile := flag.String("config", "", "JSON experiment configuration")
	flag.Parse()

	c := experiment.DefaultConfig()
	if *configFile != "" {
		var err error
		if c, err = experiment.LoadConfig(*configFile); err != nil {
			log.Fatalf("could not load configuration: %v", err)
		}
	}

	exp, tx, err := c.CreateExp()
	if err != nil {
		log.Fatalf("could not create experiment: %v", err)
	}
	defer tx.Close()

	bar := progressbar.NewManualProgressBar(os.Stdout, 40, c.Iterations)
	exp.Register(&progress{bar})

	var size int
	for _, w := range tx.Parameters().Net.Values {
		size += len(w)
	}
	log.Printf("training a %v-bit transmitter (%v parameters, %v) for %v "+
		"iterations", tx.BitCount(), size+2,
		datasize.ByteSize(8*(size+2)).HumanReadable(), c.Iterations)
	err = exp.Run()
	bar.Close()
	if err != nil {
		log.Fatalf("could not run experiment: %v", err)
	}
	if err := exp.Save(); err != nil {
		log.Fatalf("could not save data: %v", err)
	}

	bits, err := constellation.AllBitVectors(tx.BitCount())
	if err != nil {
		log.Fatal(err)
	}
	symbols, err := tx.Evaluate(bits)
	if err != nil {
		log.Fatalf("could not evaluate transmitter: %v", err)
	}

	labels := constellation.Labels(bits)
	for i, label := range labels {
		fmt.Printf("%v -> (%+.4f, %+.4f)\n", label, symbols.At(i, 0),
			symbols.At(i, 1))
	}
	std := tx.StdDev()
	log.Printf("std: (%.4f, %.4f) | min separation: %.4f | mean power: %.4f",
		std[0], std[1], matutils.MinSeparation(symbols),
		matutils.MeanPower(symbols))
	log.Printf("constellation:\n%v", matutils.Format(symbols))
}
