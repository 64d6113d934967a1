package fragment

import "sync"

// Pool recycles builders. Builders taken from a pool are reset and ready to
// record.
//
//	b := pool.Get()
//	defer pool.Put(b)
//	draw(b)
//	frag, err := b.Finish()
type Pool struct {
	pool sync.Pool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return NewBuilder()
			},
		},
	}
}

// Get returns a reset builder.
func (p *Pool) Get() *Builder {
	b := p.pool.Get().(*Builder)
	b.Reset()
	return b
}

// Put returns b to the pool. Fragments already produced by b are not
// affected.
func (p *Pool) Put(b *Builder) {
	if b == nil {
		return
	}
	p.pool.Put(b)
}

// DefaultPool is the pool used when no other is configured.
var DefaultPool = NewPool()
