package netio

import "sync"

// recvBaton implements the "two receive buffers + pending callback flag"
// pattern (spec §9): the reader goroutine always has somewhere to append
// newly-read bytes, and exactly one receive callback per connection is
// ever in flight. While a callback runs over the current buffer, further
// reads accumulate in the alternate buffer; when the callback returns, the
// alternate becomes current and is redispatched if non-empty.
type recvBaton struct {
	mu        sync.Mutex
	current   []byte
	alternate []byte
	inFlight  bool
}

// offer appends b to whichever buffer the consumer (the dispatched
// callback) is not currently reading. It returns the bytes to hand to a
// newly-dispatched callback, or nil if a callback is already in flight
// (the bytes were appended to the alternate buffer instead).
func (r *recvBaton) offer(b []byte) (toDispatch []byte, shouldDispatch bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		r.alternate = append(r.alternate, b...)
		return nil, false
	}

	r.current = append(r.current, b...)
	if len(r.current) == 0 {
		return nil, false
	}
	r.inFlight = true
	toDispatch = r.current
	r.current = nil
	return toDispatch, true
}

// done is called when a dispatched callback returns. It reports the next
// batch to dispatch (the accumulated alternate buffer) if non-empty, or
// clears in-flight status and returns false.
func (r *recvBaton) done() (toDispatch []byte, shouldDispatch bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.alternate) == 0 {
		r.inFlight = false
		return nil, false
	}
	toDispatch = r.alternate
	r.alternate = nil
	return toDispatch, true
}
