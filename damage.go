package framebuf

// Damage is a queued damaged region together with the pixels it covered
// when it was declared. The snapshot is a private copy: later writes to the
// buffer, or buffer resizes, do not affect it.
type Damage struct {
	// Region is the clamped rectangle in buffer coordinates.
	Region Rect

	// Snapshot holds Region.Width*Region.Height pixels, row-major.
	Snapshot []uint32
}

// DamageQueue is a FIFO of pending damage with a coalescing policy.
//
// The queue tracks the union of every region it holds. A new region that
// contains that union makes all queued entries redundant, so they are
// discarded before the new one is appended. Otherwise the entry is appended
// and the union grows. Scattered damage where no entry ever covers the
// union is not merged, so the queue may grow until the next drain.
//
// DamageQueue is not safe for concurrent use; World guards it with a mutex.
type DamageQueue struct {
	entries []Damage
	union   Rect
}

// Push appends d, first discarding queued entries that d supersedes.
// It returns the number of entries discarded.
func (q *DamageQueue) Push(d Damage) int {
	discarded := 0
	if d.Region.Contains(q.union) {
		discarded = len(q.entries)
		clear(q.entries)
		q.entries = q.entries[:0]
		q.union = d.Region
	} else {
		q.union = q.union.Union(d.Region)
	}
	q.entries = append(q.entries, d)
	return discarded
}

// Drain calls fn for every queued entry in FIFO order, then empties the
// queue and resets the union.
func (q *DamageQueue) Drain(fn func(Damage)) {
	for _, d := range q.entries {
		fn(d)
	}
	clear(q.entries)
	q.entries = q.entries[:0]
	q.union = Rect{}
}

// Len returns the number of queued entries.
func (q *DamageQueue) Len() int { return len(q.entries) }

// Union returns the bounding rectangle of all queued regions.
func (q *DamageQueue) Union() Rect { return q.union }

// Regions returns the queued regions in FIFO order.
func (q *DamageQueue) Regions() []Rect {
	regions := make([]Rect, len(q.entries))
	for i, d := range q.entries {
		regions[i] = d.Region
	}
	return regions
}
