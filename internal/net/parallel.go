package net

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
)

// ParallelBatchGradient computes the same sum as BatchGradient by splitting
// the instances across workers, each evaluating its own Clone. Chunk results
// are summed in chunk order. workers <= 0 uses runtime.NumCPU().
func (n *Network) ParallelBatchGradient(instances []data.Instance, workers int) ([]float64, error) {
	batchSize := len(instances)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, batchSize)
	if workers <= 1 {
		return n.BatchGradient(instances)
	}

	chunkSize := (batchSize + workers - 1) / workers
	numChunks := (batchSize + chunkSize - 1) / chunkSize
	results := make([][]float64, numChunks)
	errs := make([]error, numChunks)

	var wg sync.WaitGroup
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, batchSize)
		wg.Add(1)
		go func(c int, clone *Network) {
			defer wg.Done()
			results[c], errs[c] = clone.BatchGradient(instances[start:end])
		}(c, n.Clone())
	}
	wg.Wait()

	sum := make([]float64, n.numberWeights)
	for c := range results {
		if errs[c] != nil {
			return nil, errs[c]
		}
		floats.Add(sum, results[c])
	}
	return sum, nil
}
