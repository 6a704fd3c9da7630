// The MIT License (MIT)
//
// # Copyright (c) 2024 rsacheck
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package tree

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs the independent slots of a single tree level over a fixed set of
// workers. Run acts as the level barrier: it returns only after every
// dispatched slot has finished.
type Pool struct {
	workers int
}

// NewPool sizes a pool. workers < 1 falls back to the number of CPUs.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Run invokes task for every slot in [0, n). Slots execute in any order across
// the workers. On the first task error the remaining slots are abandoned,
// in-flight tasks drain, and that first error is returned. Per-slot retries are
// pointless here: the arithmetic is deterministic and store failures are not
// transient.
func (p *Pool) Run(n int, task func(slot int) error) error {
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		failed   atomic.Bool
	)

	slots := make(chan int)
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range slots {
				if failed.Load() {
					continue
				}
				if err := task(slot); err != nil {
					once.Do(func() {
						firstErr = err
						failed.Store(true)
					})
				}
			}
		}()
	}

	for i := 0; i < n && !failed.Load(); i++ {
		slots <- i
	}
	close(slots)
	wg.Wait()

	return firstErr
}
