package logic

// Channel is the edge detector for one input. It is armed until it reports an
// edge, then stays consumed until the raw level goes inactive again.
type Channel struct {
	spec    ChannelSpec
	latched bool
}

// NewChannel creates an armed channel.
func NewChannel(spec ChannelSpec) *Channel {
	return &Channel{spec: spec, latched: true}
}

// Poll feeds one raw sample and returns true at most once per contiguous
// active run. It does not filter contact bounce.
func (c *Channel) Poll(raw bool) bool {
	if !raw {
		c.latched = true
		return false
	}
	if c.latched {
		c.latched = false
		return true
	}
	// Still held
	return false
}

// Armed reports whether the next active sample will produce an edge.
func (c *Channel) Armed() bool {
	return c.latched
}

// Spec returns the channel's table entry.
func (c *Channel) Spec() ChannelSpec {
	return c.spec
}

// RotationCounter counts edges on one channel and reports completion every
// target edges.
type RotationCounter struct {
	ch    *Channel
	count int
}

// NewRotationCounter creates a counter with an armed channel and zero count.
func NewRotationCounter(spec ChannelSpec) *RotationCounter {
	return &RotationCounter{ch: NewChannel(spec)}
}

// Poll feeds one raw sample. target is read on every call so the caller can
// retarget without losing the accumulated count; values below 1 are treated
// as 1. Returns true when the count reaches target, resetting it to 0.
func (r *RotationCounter) Poll(target int, raw bool) bool {
	if target < 1 {
		target = 1
	}
	if !r.ch.Poll(raw) {
		return false
	}
	r.count++
	if r.count >= target {
		r.count = 0
		return true
	}
	return false
}

// Count returns the edges accumulated towards the next completion.
func (r *RotationCounter) Count() int {
	return r.count
}

// ToggleLatch tracks a two-position switch: the raw level plus a one-shot
// "pulled" edge over the same samples.
type ToggleLatch struct {
	ch    *Channel
	level bool
}

// NewToggleLatch creates an armed toggle latch.
func NewToggleLatch(spec ChannelSpec) *ToggleLatch {
	return &ToggleLatch{ch: NewChannel(spec)}
}

// Observe records a raw sample for Level without touching the edge state.
func (t *ToggleLatch) Observe(raw bool) {
	t.level = raw
}

// Level returns the most recent raw sample.
func (t *ToggleLatch) Level() bool {
	return t.level
}

// Pulled records the raw sample and returns true only on the sample where the
// switch moves into the active position.
func (t *ToggleLatch) Pulled(raw bool) bool {
	t.level = raw
	return t.ch.Poll(raw)
}
