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

// Build writes the product tree of moduli to the store and returns its height
// h. Level 0 holds the inputs themselves; level k slot i is the product of
// slots 2i and 2i+1 of level k−1, with a trailing odd slot carried up
// unchanged. level h has a single slot, the product of the whole corpus.
//
// Levels are processed one at a time with a barrier in between; inside a level
// every slot is an independent pool task that reads its two children from the
// store, multiplies, and writes the product back. Only the values currently
// inside workers are resident, so callers may discard their moduli slice after
// Build returns and reload leaves from the store later.
func Build(st *store.Store, moduli []*big.Int, pool *Pool) (int, error) {
	if err := Validate(moduli); err != nil {
		return 0, err
	}

	n := len(moduli)
	err := pool.Run(n, func(i int) error {
		return errors.Wrapf(st.Put(store.Product, 0, i, moduli[i]), "product tree: level 0 slot %d", i)
	})
	if err != nil {
		return 0, err
	}

	widths := levelWidths(n)
	h := len(widths) - 1
	for k := 1; k <= h; k++ {
		prevW := widths[k-1]
		err := pool.Run(widths[k], func(i int) error {
			left, err := st.Get(store.Product, k-1, 2*i)
			if err != nil {
				return errors.Wrapf(err, "product tree: level %d slot %d", k, i)
			}
			// A trailing odd slot is promoted as-is. Multiplying by 1 would
			// preserve the value but not the exact on-disk identity.
			v := left
			if 2*i+1 < prevW {
				right, err := st.Get(store.Product, k-1, 2*i+1)
				if err != nil {
					return errors.Wrapf(err, "product tree: level %d slot %d", k, i)
				}
				v = bignum.Mul(left, right)
			}
			return errors.Wrapf(st.Put(store.Product, k, i, v), "product tree: level %d slot %d", k, i)
		})
		if err != nil {
			return 0, err
		}
	}
	return h, nil
}
