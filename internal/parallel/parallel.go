// Package parallel provides the worker fan-out used by the trainer.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns one worker per CPU.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Chunk is the half-open index range [Start, End) assigned to one worker.
type Chunk struct {
	Start, End int
}

// Len returns the number of items in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Split divides [0, n) into at most workers contiguous chunks of near-equal
// size, in ascending order. Earlier chunks receive the remainder.
// Returns nil when n <= 0.
func Split(n, workers int) []Chunk {
	if n <= 0 {
		return nil
	}
	workers = max(1, min(workers, n))

	chunks := make([]Chunk, workers)
	size, rem := n/workers, n%workers
	start := 0
	for w := range chunks {
		end := start + size
		if w < rem {
			end++
		}
		chunks[w] = Chunk{Start: start, End: end}
		start = end
	}
	return chunks
}

// Run calls f(worker, chunk) once per chunk of Split(n, workers) and waits for
// all of them. worker is the chunk's position, so results stored by worker
// index can be combined in a fixed order regardless of scheduling.
//
// With parallelism disabled, or fewer than MinChunkSize items per worker, the
// chunks run one after another on the calling goroutine.
func Run(n int, f func(worker int, c Chunk), cfg Config) {
	workers := max(1, cfg.NumWorkers)
	if cfg.MinChunkSize > 0 {
		workers = min(workers, max(1, n/cfg.MinChunkSize))
	}
	chunks := Split(n, workers)

	if !cfg.Enabled || len(chunks) < 2 {
		// Sequential fallback.
		for w, c := range chunks {
			f(w, c)
		}
		return
	}

	var wg sync.WaitGroup
	for w, c := range chunks {
		wg.Add(1)
		go func(w int, c Chunk) {
			defer wg.Done()
			f(w, c)
		}(w, c)
	}
	wg.Wait()
}
