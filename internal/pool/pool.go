package pool

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type State uint32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PanicHandler is called from the worker goroutine when a job panics.
type PanicHandler func(value any, stack []byte)

// Pool is a fixed set of workers sharing a single unbounded FIFO queue. Every submitted job
// is handled by exactly one worker.
type Pool[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	stopped bool
	handle  func(T)
	onPanic PanicHandler
	states  []atomic.Uint32
	wg      sync.WaitGroup
}

// New spawns the workers right away. Non-positive number of workers defaults to the number
// of CPUs. onPanic may be nil, the worker survives the panic anyway.
func New[T any](workers int, handle func(T), onPanic PanicHandler) *Pool[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool[T]{
		handle:  handle,
		onPanic: onPanic,
		states:  make([]atomic.Uint32, workers),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// Submit enqueues the job. It returns false if the pool is already stopped, in this case
// the job is dropped and the caller is responsible for it.
func (p *Pool[T]) Submit(job T) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}

	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()

	return true
}

// Stop refuses any new jobs, lets workers finish everything already queued and waits
// for them to exit. It's safe to call Stop multiple times.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Len returns the number of jobs waiting for a worker.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

// Workers returns the number of workers.
func (p *Pool[T]) Workers() int {
	return len(p.states)
}

// States returns a snapshot of every worker's state.
func (p *Pool[T]) States() []State {
	states := make([]State, len(p.states))
	for i := range p.states {
		states[i] = State(p.states[i].Load())
	}

	return states
}

func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	state := &p.states[id]

	for {
		job, ok := p.next()
		if !ok {
			state.Store(uint32(Stopped))
			return
		}

		state.Store(uint32(Running))
		p.run(job)
		state.Store(uint32(Idle))
	}
}

// next blocks until a job is available. It returns false once the pool is stopped and the
// queue is drained.
func (p *Pool[T]) next() (job T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.stopped {
		p.cond.Wait()
	}

	if len(p.queue) == 0 {
		return job, false
	}

	job = p.queue[0]
	var zero T
	p.queue[0] = zero
	p.queue = p.queue[1:]

	return job, true
}

func (p *Pool[T]) run(job T) {
	defer func() {
		if v := recover(); v != nil && p.onPanic != nil {
			p.onPanic(v, debug.Stack())
		}
	}()

	p.handle(job)
}
