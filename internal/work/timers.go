package work

import "time"

// Timers is the set of pending callbacks owned by one room. Callbacks are
// posted back through the loop and skipped when their handle was stopped in
// the meantime, so a stale timer never touches state that has been reset.
//
// A Timers value is confined to its loop goroutine.
type Timers struct {
	sched Scheduler
	post  Poster
	live  map[*Handle]struct{}
}

type Handle struct {
	owner   *Timers
	timer   Timer
	stopped bool
}

func NewTimers(sched Scheduler, post Poster) *Timers {
	return &Timers{sched: sched, post: post, live: make(map[*Handle]struct{})}
}

func (ts *Timers) Now() time.Time { return ts.sched.Now() }

// After runs f once, d from now.
func (ts *Timers) After(d time.Duration, f func()) *Handle {
	h := &Handle{owner: ts}
	ts.live[h] = struct{}{}
	h.timer = ts.sched.AfterFunc(d, func() {
		ts.post.Post(func() {
			if h.stopped {
				return
			}
			h.stopped = true
			delete(ts.live, h)
			f()
		})
	})
	return h
}

// Every runs f every d until the handle is stopped.
func (ts *Timers) Every(d time.Duration, f func()) *Handle {
	h := &Handle{owner: ts}
	ts.live[h] = struct{}{}
	var arm func()
	arm = func() {
		h.timer = ts.sched.AfterFunc(d, func() {
			ts.post.Post(func() {
				if h.stopped {
					return
				}
				f()
				if !h.stopped {
					arm()
				}
			})
		})
	}
	arm()
	return h
}

// StopAll cancels every pending callback. Called on every reset and disband.
func (ts *Timers) StopAll() {
	for h := range ts.live {
		h.stopped = true
		if h.timer != nil {
			h.timer.Stop()
		}
	}
	clear(ts.live)
}

func (ts *Timers) Len() int { return len(ts.live) }

// Stop cancels the callback. Safe on a nil or already stopped handle.
func (h *Handle) Stop() {
	if h == nil || h.stopped {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
	}
	delete(h.owner.live, h)
}

func (h *Handle) Active() bool { return h != nil && !h.stopped }
