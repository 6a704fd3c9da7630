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
	"math/big"

	"github.com/pkg/errors"

	"github.com/rsacheck/batchgcd/bignum"
	"github.com/rsacheck/batchgcd/store"
)

// Remainders is the leaf output of the descent. The values sit either in
// memory or, when the run spilled, in the store; At hides the difference so
// the finalizer streams them one slot at a time either way.
type Remainders struct {
	st      *store.Store
	mem     []*big.Int
	n       int
	spilled bool
}

// Len returns the number of leaf slots.
func (r *Remainders) Len() int {
	return r.n
}

// At returns the remainder for leaf slot i.
func (r *Remainders) At(i int) (*big.Int, error) {
	if r.spilled {
		return r.st.Get(store.Remainder, 0, i)
	}
	return r.mem[i], nil
}

// Release drops any on-disk remainder entries still held at the leaf level.
func (r *Remainders) Release() error {
	if !r.spilled {
		return nil
	}
	return r.st.DropLevel(store.Remainder, 0)
}

// Descend walks the remainder tree downward over a product tree of height h
// for n leaves. The root remainder is the full product Z itself; each step
// computes R_{k−1,i} = R_{k,⌊i/2⌋} mod (level_{k−1}[i])². The square is taken
// of the child product node, once per edge — squaring interior parents instead
// is the classic way to blow the runtime up quadratically.
//
// Each remainder level is held in memory unless its byte estimate exceeds
// spillBudget (0 disables spilling), in which case levels are written to the
// store under the Remainder namespace and parents are re-read per slot.
// Consumed levels are dropped eagerly: product level k−1 right after the
// descent past it (leaves excepted, the finalizer reloads those), and a
// spilled remainder level as soon as its children exist.
func Descend(st *store.Store, n, h int, pool *Pool, spillBudget int64) (*Remainders, error) {
	widths := levelWidths(n)
	if len(widths)-1 != h {
		return nil, errors.Errorf("remainder tree: height %d does not match %d leaves", h, n)
	}

	root, err := st.Get(store.Product, h, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "remainder tree: level %d slot 0", h)
	}

	// Every remainder at level k−1 is below (level_{k−1}[i])², and the node
	// bitlengths across one level sum to ~bitlen(Z), so a full level weighs in
	// at about twice the root. The estimate is level-independent, which makes
	// the spill decision a single up-front choice.
	levelBytes := 2 * int64(root.BitLen()/8+1)
	spill := spillBudget > 0 && levelBytes > spillBudget

	if h == 0 {
		// Single input: Z mod N₀² is N₀ itself.
		return &Remainders{st: st, mem: []*big.Int{root}, n: 1}, nil
	}

	parent := []*big.Int{root}
	if spill {
		if err := st.Put(store.Remainder, h, 0, root); err != nil {
			return nil, errors.Wrapf(err, "remainder tree: level %d slot 0", h)
		}
		parent = nil
	}
	root = nil
	if err := st.DropLevel(store.Product, h); err != nil {
		return nil, err
	}

	for k := h; k >= 1; k-- {
		childW := widths[k-1]
		var child []*big.Int
		if !spill {
			child = make([]*big.Int, childW)
		}

		err := pool.Run(childW, func(i int) error {
			m, err := st.Get(store.Product, k-1, i)
			if err != nil {
				return errors.Wrapf(err, "remainder tree: level %d slot %d", k-1, i)
			}
			var rp *big.Int
			if spill {
				if rp, err = st.Get(store.Remainder, k, i/2); err != nil {
					return errors.Wrapf(err, "remainder tree: level %d slot %d", k-1, i)
				}
			} else {
				rp = parent[i/2]
			}
			r, err := bignum.Mod(rp, bignum.Square(m))
			if err != nil {
				return errors.Wrapf(err, "remainder tree: level %d slot %d", k-1, i)
			}
			if spill {
				return errors.Wrapf(st.Put(store.Remainder, k-1, i, r), "remainder tree: level %d slot %d", k-1, i)
			}
			child[i] = r
			return nil
		})
		if err != nil {
			return nil, err
		}

		// The level just consumed is dead weight from here on.
		if spill {
			if err := st.DropLevel(store.Remainder, k); err != nil {
				return nil, err
			}
		}
		if k-1 > 0 {
			if err := st.DropLevel(store.Product, k-1); err != nil {
				return nil, err
			}
		}
		parent = child
	}

	return &Remainders{st: st, mem: parent, n: n, spilled: spill}, nil
}
