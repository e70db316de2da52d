// Package pool provides typed object pools for libav objects, so that the
// decode loops do not allocate a new frame/packet per iteration.
package pool

import (
	"runtime"
	"sync"
)

// ReuseMemory could be disabled to debug use-after-put problems.
var ReuseMemory = true

type Pool[T any] struct {
	sync.Pool
	ResetFunc func(*T)
}

func NewPool[T any](
	allocFunc func() *T,
	resetFunc func(*T),
	freeFunc func(*T),
) *Pool[T] {
	return &Pool[T]{
		Pool: sync.Pool{
			New: func() any {
				v := allocFunc()
				runtime.SetFinalizer(v, freeFunc)
				return v
			},
		},
		ResetFunc: resetFunc,
	}
}

func (p *Pool[T]) Get() *T {
	return p.Pool.Get().(*T)
}

func (p *Pool[T]) Put(items ...*T) {
	if !ReuseMemory {
		return
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		p.ResetFunc(item)
		p.Pool.Put(item)
	}
}
