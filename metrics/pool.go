package metrics

import (
	"sync"
)

// batchPool recycles point batches between Export and the senders.
type batchPool struct {
	size int
	pool sync.Pool
}

func newBatchPool(size int) *batchPool {
	p := &batchPool{size: size}
	p.pool.New = func() interface{} {
		buf := make([]point, 0, size)
		return &buf
	}
	return p
}

func (p *batchPool) get() *[]point {
	return p.pool.Get().(*[]point)
}

// put zeroes the batch so a pooled slice does not keep tag slices alive.
// Batches that grew past twice the batch size are left to the GC.
func (p *batchPool) put(points *[]point) {
	if cap(*points) > 2*p.size {
		return
	}
	for i := range *points {
		(*points)[i] = point{}
	}
	*points = (*points)[:0]
	p.pool.Put(points)
}
