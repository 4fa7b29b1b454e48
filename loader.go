package bgan

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/sgd"
)

// A Dataset is a set of images whose pixels take one of
// NumColors levels.
// GetSample returns an []int of levels in row-major order.
//
// GetSample may be called from several goroutines at once.
type Dataset interface {
	sgd.SampleSet

	NumColors() int
	ImageSize() (width, height int)
}

// LoaderOptions configures StartLoader.
type LoaderOptions struct {
	BatchSize int

	// NumWorkers is the number of goroutines assembling
	// batches. Values below 1 mean 1.
	NumWorkers int

	// Prefetch is the number of finished batches allowed to
	// wait for the consumer. Values below 1 mean 2.
	Prefetch int

	// Shuffle, if non-nil, is used to permute the dataset
	// before the epoch starts.
	Shuffle *rand.Rand
}

// StartLoader streams one epoch of the dataset as batches.
//
// Batches are emitted in index order no matter which worker
// assembled them. The last batch may be smaller than
// BatchSize.
// Both channels are closed when the epoch ends, when an
// error is sent, or when ctx is done.
func StartLoader(parent context.Context, data Dataset, space OutputSpace,
	opts LoaderOptions) (<-chan *Batch, <-chan error, error) {
	if opts.BatchSize <= 0 {
		return nil, nil, errors.Errorf("loader: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	if data.Len() == 0 {
		return nil, nil, errors.New("loader: empty dataset")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 2
	}
	if opts.Shuffle != nil {
		shuffleSamples(data, opts.Shuffle)
	}

	ctx, cancel := context.WithCancel(parent)

	numBatches := (data.Len() + opts.BatchSize - 1) / opts.BatchSize
	jobs := make(chan batchJob, opts.NumWorkers)
	loaded := make(chan loadedBatch, opts.NumWorkers)
	out := make(chan *Batch, opts.Prefetch)
	errCh := make(chan error, 1)

	// Each batch holds a token from job creation until it is
	// emitted.
	tokens := make(chan struct{}, opts.NumWorkers+opts.Prefetch)

	go produceBatchJobs(ctx, jobs, tokens, numBatches, opts.BatchSize, data.Len())

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loadWorker(ctx, data, space, jobs, loaded)
		}()
	}

	go func() {
		wg.Wait()
		close(loaded)
	}()

	go func() {
		defer cancel()
		defer close(out)
		defer close(errCh)
		aggregateBatches(ctx, loaded, tokens, numBatches, out, errCh)
	}()

	return out, errCh, nil
}

type batchJob struct {
	id    int
	start int
	end   int
}

type loadedBatch struct {
	id    int
	batch *Batch
	err   error
}

func produceBatchJobs(ctx context.Context, jobs chan<- batchJob, tokens chan<- struct{},
	numBatches, batchSize, total int) {
	defer close(jobs)
	for id := 0; id < numBatches; id++ {
		select {
		case <-ctx.Done():
			return
		case tokens <- struct{}{}:
		}
		end := (id + 1) * batchSize
		if end > total {
			end = total
		}
		select {
		case <-ctx.Done():
			return
		case jobs <- batchJob{id: id, start: id * batchSize, end: end}:
		}
	}
}

func loadWorker(ctx context.Context, data Dataset, space OutputSpace, jobs <-chan batchJob,
	loaded chan<- loadedBatch) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			batch, err := loadBatch(data, space, job)
			select {
			case <-ctx.Done():
				return
			case loaded <- loadedBatch{id: job.id, batch: batch, err: err}:
			}
		}
	}
}

func loadBatch(data Dataset, space OutputSpace, job batchJob) (*Batch, error) {
	res := &Batch{Space: space, Samples: make([]linalg.Vector, 0, job.end-job.start)}
	for i := job.start; i < job.end; i++ {
		levels, ok := data.GetSample(i).([]int)
		if !ok {
			return nil, errors.Errorf("loader: sample %d is %T, not []int", i, data.GetSample(i))
		}
		vec, err := space.Encode(levels)
		if err != nil {
			return nil, errors.Wrapf(err, "loader: sample %d", i)
		}
		res.Samples = append(res.Samples, vec)
	}
	return res, nil
}

func aggregateBatches(ctx context.Context, loaded <-chan loadedBatch, tokens <-chan struct{},
	numBatches int, out chan<- *Batch, errCh chan<- error) {
	pending := map[int]*Batch{}
	for next := 0; next < numBatches; {
		if batch, ok := pending[next]; ok {
			select {
			case <-ctx.Done():
				return
			case out <- batch:
			}
			delete(pending, next)
			<-tokens
			next++
			continue
		}
		select {
		case <-ctx.Done():
			return
		case l, ok := <-loaded:
			if !ok {
				return
			}
			if l.err != nil {
				errCh <- l.err
				return
			}
			pending[l.id] = l.batch
		}
	}
}

func shuffleSamples(s sgd.SampleSet, r *rand.Rand) {
	for i := s.Len() - 1; i > 0; i-- {
		s.Swap(i, r.Intn(i+1))
	}
}
