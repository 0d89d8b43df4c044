package mqtt

import "testing"

func pushN(r *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		r.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}
}

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	if got := newRingBuffer(4).drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
		want     []byte
		dropped  int
	}{
		{"partial", 4, 3, []byte{0, 1, 2}, 0},
		{"full", 4, 4, []byte{0, 1, 2, 3}, 0},
		{"overflow keeps newest", 4, 7, []byte{3, 4, 5, 6}, 3},
		{"single slot", 1, 3, []byte{2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRingBuffer(tt.capacity)
			pushN(r, 0, tt.pushes)
			if r.dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", r.dropped, tt.dropped)
			}
			if r.len() != len(tt.want) {
				t.Errorf("len = %d, want %d", r.len(), len(tt.want))
			}
			if got := payloads(r.drainAll()); string(got) != string(tt.want) {
				t.Errorf("drained %v, want %v", got, tt.want)
			}
			if r.len() != 0 || r.dropped != 0 {
				t.Error("drain did not reset the buffer")
			}
		})
	}
}

func TestRingBufferReuseAfterDrain(t *testing.T) {
	r := newRingBuffer(3)
	pushN(r, 0, 5)
	r.drainAll()

	pushN(r, 10, 12)
	if got := payloads(r.drainAll()); string(got) != string([]byte{10, 11}) {
		t.Errorf("drained %v after reuse", got)
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	r := newRingBuffer(2)
	r.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got := r.drainAll()[0]
	if got.topic != TopicSystem || string(got.payload) != "x" || got.qos != 1 || !got.retained {
		t.Errorf("got %+v", got)
	}
}
