package work

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Poster accepts jobs for serialized execution.
type Poster interface {
	Post(job func())
}

// Executor is a Poster that can also run a job and wait for it.
type Executor interface {
	Poster
	Do(job func()) bool
}

// Loop runs posted jobs one at a time, in arrival order, on a single
// goroutine. Everything a game module owns is touched only from its loop.
type Loop struct {
	jobs     chan func()
	quit     chan struct{}
	done     chan struct{}
	log      *zap.Logger
	start    sync.Once
	stopOnce sync.Once
}

func NewLoop(size int, log *zap.Logger) *Loop {
	if size <= 0 {
		size = 256
	}
	return &Loop{
		jobs: make(chan func(), size),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  log,
	}
}

func (l *Loop) Start() {
	l.start.Do(func() {
		go l.run()
	})
}

// Stop discards queued jobs and waits for the running one to return.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	l.start.Do(func() { close(l.done) })
	<-l.done
}

// Post enqueues job. It blocks while the queue is full and drops the job once
// the loop has stopped.
func (l *Loop) Post(job func()) {
	select {
	case <-l.quit:
		return
	default:
	}
	select {
	case l.jobs <- job:
	case <-l.quit:
	}
}

// Do posts job and waits for it to finish. It reports false when the loop
// stopped first. Must not be called from inside a job.
func (l *Loop) Do(job func()) bool {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		job()
	})
	select {
	case <-finished:
		return true
	case <-l.quit:
		return false
	}
}

func (l *Loop) Pending() int { return len(l.jobs) }

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case job := <-l.jobs:
			l.safeRun(job)
		}
	}
}

func (l *Loop) safeRun(job func()) {
	defer func() {
		if e := recover(); e != nil {
			l.log.Error("job panicked", zap.Any("panic", e), zap.ByteString("stack", debug.Stack()))
		}
	}()
	job()
}

// Inline runs jobs on the caller's goroutine. Tests use it to drive modules
// synchronously.
type Inline struct{}

func (Inline) Post(job func()) { job() }

func (Inline) Do(job func()) bool {
	job()
	return true
}
