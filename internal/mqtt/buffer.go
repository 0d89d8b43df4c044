package mqtt

import "github.com/sweeney/mono-kit/internal/logging"

// bufferedMsg is a serialized message waiting for the connection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published while offline. When full,
// the oldest message is overwritten. Not safe for concurrent use;
// RealPublisher guards it with its mutex.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int // slot for the next push
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	capacity := len(r.msgs)
	if r.count == capacity {
		if r.dropped == 0 {
			logging.GetLogger("mqtt").Warn("mqtt buffer full, dropping oldest", "capacity", capacity)
		}
		r.dropped++
	} else {
		r.count++
	}
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % capacity
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	capacity := len(r.msgs)
	start := (r.next - r.count + capacity) % capacity
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.msgs[(start+i)%capacity]
	}
	r.next, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
