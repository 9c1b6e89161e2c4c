package icon

import (
	"image"
	"sync"
)

// Source resolves one icon reference; Resolver is the production one.
type Source interface {
	Resolve(ref string) (image.Image, error)
}

type Response struct {
	Ref   string
	Image image.Image
	Err   error
}

// Loader resolves icons on a fixed pool of workers fed by a bounded queue.
// Responses come back on a single channel for the event loop to select on.
type Loader struct {
	src       Source
	queue     chan string
	responses chan Response
	quit      chan struct{}
	closeOnce sync.Once
}

func NewLoader(src Source, workers, buf int) *Loader {
	if workers <= 0 {
		workers = 2
	}
	if buf <= 0 {
		buf = 64
	}
	l := &Loader{
		src:       src,
		queue:     make(chan string, buf),
		responses: make(chan Response, buf),
		quit:      make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go l.loop()
	}
	return l
}

func (l *Loader) loop() {
	for {
		select {
		case ref := <-l.queue:
			img, err := l.src.Resolve(ref)
			select {
			case l.responses <- Response{Ref: ref, Image: img, Err: err}:
			case <-l.quit:
				return
			}
		case <-l.quit:
			return
		}
	}
}

// Request queues ref without blocking. It reports false when the queue is
// full or the loader is closed; the caller may ask again later.
func (l *Loader) Request(ref string) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.queue <- ref:
		return true
	default:
		return false
	}
}

func (l *Loader) Responses() <-chan Response { return l.responses }

// Close stops the workers without waiting for them. Requests still queued
// are dropped, and a worker busy in Resolve exits once it returns.
func (l *Loader) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
}
