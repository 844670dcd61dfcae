package meshing

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"worldify/internal/voxel"
)

// Job is one mesh dispatch: a padded grid snapshot plus its boundary flags.
type Job struct {
	Coord    voxel.ChunkCoord
	Grid     *Grid
	SkipHigh [3]bool
}

// Result is one finished mesh. For batch dispatches, Batch carries every
// result of the batch so the caller can commit them atomically.
type Result struct {
	Mesh  *MeshResult
	Batch []*MeshResult
}

type workItem struct {
	job   Job
	batch *batchState
	slot  int
}

type batchState struct {
	results   []*MeshResult
	remaining atomic.Int32
}

// Pool runs meshing jobs on a fixed set of workers. Grids are copied in and
// mesh buffers transferred out; workers never touch the chunk store. The
// main thread drains finished results each frame via Drain.
type Pool struct {
	jobs    chan workItem
	results chan Result
	grids   chan *Grid

	cancel context.CancelFunc
	group  *errgroup.Group

	// main-thread-only state
	inFlight map[voxel.ChunkCoord]struct{}
	preview  map[voxel.ChunkCoord]struct{}
}

// MinWorkers is the smallest pool the engine runs.
const MinWorkers = 2

// NewPool starts `workers` meshing goroutines (raised to MinWorkers).
func NewPool(workers int) *Pool {
	if workers < MinWorkers {
		workers = MinWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		jobs:     make(chan workItem, 256),
		results:  make(chan Result, 256),
		grids:    make(chan *Grid, workers*2+4),
		cancel:   cancel,
		group:    group,
		inFlight: make(map[voxel.ChunkCoord]struct{}),
		preview:  make(map[voxel.ChunkCoord]struct{}),
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}

	slog.Info("mesh pool started", "workers", workers)
	return p
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case item := <-p.jobs:
			mesh := BuildMesh(item.job.Coord, item.job.Grid, item.job.SkipHigh)
			p.ReturnGrid(item.job.Grid)

			if item.batch == nil {
				select {
				case p.results <- Result{Mesh: mesh}:
				case <-ctx.Done():
					return
				}
				continue
			}

			item.batch.results[item.slot] = mesh
			if item.batch.remaining.Add(-1) == 0 {
				select {
				case p.results <- Result{Batch: item.batch.results}:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// TakeGrid borrows a scratch grid from the free list, allocating when the
// list is dry.
func (p *Pool) TakeGrid() *Grid {
	select {
	case g := <-p.grids:
		return g
	default:
		return new(Grid)
	}
}

// ReturnGrid gives a scratch grid back; surplus grids are dropped for the GC.
func (p *Pool) ReturnGrid(g *Grid) {
	select {
	case p.grids <- g:
	default:
	}
}

// Dispatch schedules one mesh job. Returns false when the queue is full.
func (p *Pool) Dispatch(job Job) bool {
	select {
	case p.jobs <- workItem{job: job}:
		p.inFlight[job.Coord] = struct{}{}
		return true
	default:
		p.ReturnGrid(job.Grid)
		return false
	}
}

// DispatchBatch schedules many jobs whose results must be committed in the
// same frame; the batch surfaces in Drain as one Result once every job has
// finished.
func (p *Pool) DispatchBatch(jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	batch := &batchState{results: make([]*MeshResult, len(jobs))}
	batch.remaining.Store(int32(len(jobs)))

	for i, job := range jobs {
		p.inFlight[job.Coord] = struct{}{}
		// Batches bypass the non-blocking fast path: atomicity beats
		// backpressure here, and the queue is far larger than any batch.
		p.jobs <- workItem{job: job, batch: batch, slot: i}
	}
}

// IsInFlight reports whether a mesh job for the chunk is queued or running.
func (p *Pool) IsInFlight(coord voxel.ChunkCoord) bool {
	_, ok := p.inFlight[coord]
	return ok
}

// SetPreview marks or clears build-preview ownership of a chunk; the remesh
// scheduler yields previewed chunks to the preview subsystem.
func (p *Pool) SetPreview(coord voxel.ChunkCoord, active bool) {
	if active {
		p.preview[coord] = struct{}{}
	} else {
		delete(p.preview, coord)
	}
}

// IsPreviewChunk reports whether the preview subsystem owns the chunk.
func (p *Pool) IsPreviewChunk(coord voxel.ChunkCoord) bool {
	_, ok := p.preview[coord]
	return ok
}

// Drain applies every finished result without blocking. Must be called from
// the main thread; it clears the in-flight marks as results surface.
func (p *Pool) Drain(apply func(*MeshResult)) {
	for {
		select {
		case r := <-p.results:
			if r.Mesh != nil {
				delete(p.inFlight, r.Mesh.Coord)
				apply(r.Mesh)
			}
			for _, m := range r.Batch {
				delete(p.inFlight, m.Coord)
			}
			for _, m := range r.Batch {
				apply(m)
			}
		default:
			return
		}
	}
}

// Dispose stops the workers and waits for them to exit.
func (p *Pool) Dispose() {
	p.cancel()
	_ = p.group.Wait()
}
