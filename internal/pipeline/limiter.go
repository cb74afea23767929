package pipeline

import "sync"

// concLimiter bounds the number of subdataset pipelines running at
// once. Increase blocks while the pool is full.
type concLimiter struct {
	*sync.WaitGroup
	pool chan struct{}
}

func newConcLimiter(level int) *concLimiter {
	var wg sync.WaitGroup
	return &concLimiter{&wg, make(chan struct{}, level)}
}

func (c *concLimiter) Increase() {
	c.Add(1)
	c.pool <- struct{}{}
}

func (c *concLimiter) Decrease() {
	<-c.pool
	c.Done()
}
