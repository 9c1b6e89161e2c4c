package icon

import "image"

// Requester queues an asynchronous lookup; Loader implements it.
type Requester interface {
	Request(ref string) bool
}

// Cache remembers icons for the rest of the session. It is not safe for
// concurrent use; only the event loop touches it.
type Cache struct {
	req      Requester
	resolved map[string]image.Image
	failed   map[string]error
	pending  map[string]struct{}
}

func NewCache(req Requester) *Cache {
	return &Cache{
		req:      req,
		resolved: make(map[string]image.Image),
		failed:   make(map[string]error),
		pending:  make(map[string]struct{}),
	}
}

// Get returns the icon for ref if it is resolved. The first miss issues a
// request; failed references are never requested again.
func (c *Cache) Get(ref string) (image.Image, bool) {
	if ref == "" {
		return nil, false
	}
	if img, ok := c.resolved[ref]; ok {
		return img, true
	}
	if _, ok := c.failed[ref]; ok {
		return nil, false
	}
	if _, ok := c.pending[ref]; ok {
		return nil, false
	}
	if c.req != nil && c.req.Request(ref) {
		c.pending[ref] = struct{}{}
	}
	return nil, false
}

// Store records a response and reports whether a new image became
// available, which means a redraw is owed.
func (c *Cache) Store(resp Response) bool {
	delete(c.pending, resp.Ref)
	if resp.Err != nil || resp.Image == nil {
		if resp.Err != nil {
			c.failed[resp.Ref] = resp.Err
		} else {
			c.failed[resp.Ref] = ErrNotFound
		}
		return false
	}
	if _, ok := c.resolved[resp.Ref]; ok {
		return false
	}
	c.resolved[resp.Ref] = resp.Image
	return true
}

func (c *Cache) Pending() int { return len(c.pending) }

// Failed returns the error recorded for ref, if any.
func (c *Cache) Failed(ref string) error { return c.failed[ref] }
