package dataset

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

// Batch is a minibatch of copied pixel rows and their labels.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

// StreamOptions configures one pass over a set.
type StreamOptions struct {
	Set        *Set
	BatchSize  int
	Shuffle    bool
	Seed       int64
	NumWorkers int
	Transform  *Noise
}

// Stream launches a worker pool that assembles batches off the training
// goroutine, applying the transform to copies of the stored pixels. Batches
// arrive in a deterministic order for a given seed; the channel closes once
// the set has been delivered exactly once.
func Stream(ctx context.Context, opts StreamOptions) (<-chan Batch, error) {
	if opts.Set == nil || opts.Set.Len() == 0 {
		return nil, errors.New("dataset: empty set")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("dataset: batch size must be > 0")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}

	indices := make([]int, opts.Set.Len())
	for i := range indices {
		indices[i] = i
	}
	if opts.Shuffle {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	numBatches := (len(indices) + opts.BatchSize - 1) / opts.BatchSize

	jobs := make(chan batchJob, opts.NumWorkers)
	built := make(chan builtBatch, opts.NumWorkers)
	out := make(chan Batch, opts.NumWorkers)

	go func() {
		defer close(jobs)
		for id := 0; id < numBatches; id++ {
			start := id * opts.BatchSize
			end := start + opts.BatchSize
			if end > len(indices) {
				end = len(indices)
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- batchJob{id: id, indices: indices[start:end]}:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				b := buildBatch(opts.Set, job.indices, opts.Transform)
				select {
				case <-ctx.Done():
					return
				case built <- builtBatch{id: job.id, batch: b}:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(built)
	}()

	go func() {
		defer close(out)
		pending := make(map[int]Batch)
		next := 0
		for bb := range built {
			pending[bb.id] = bb.batch
			for {
				b, ok := pending[next]
				if !ok {
					break
				}
				select {
				case <-ctx.Done():
					return
				case out <- b:
				}
				delete(pending, next)
				next++
			}
		}
	}()

	return out, nil
}

type batchJob struct {
	id      int
	indices []int
}

type builtBatch struct {
	id    int
	batch Batch
}

func buildBatch(set *Set, indices []int, transform *Noise) Batch {
	b := Batch{
		Inputs: make([][]float64, len(indices)),
		Labels: make([]int, len(indices)),
	}
	for i, idx := range indices {
		pixels := append([]float64(nil), set.Images[idx]...)
		if transform != nil {
			transform.Apply(pixels, idx)
		}
		b.Inputs[i] = pixels
		b.Labels[i] = set.Labels[idx]
	}
	return b
}
