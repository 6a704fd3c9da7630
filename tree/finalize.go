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

// Finalize turns the leaf remainders into the result vector G, where
// G[i] = gcd(R_i/N_i, N_i) = gcd(Π_{j≠i} N_j, N_i). The leaves are reloaded
// from the store: callers may discard their moduli once Build returns and the
// descent squared what it read, so level 0 on disk is the copy of the plain N_i
// that the finalizer relies on.
//
// N_i divides R_i by construction. A nonzero division remainder, or a G that
// fails to divide N_i, is not a property of the input — it means the engine
// itself miscomputed, and the run aborts with an invariant violation saying so.
func Finalize(st *store.Store, rems *Remainders, pool *Pool) ([]*big.Int, error) {
	n := rems.Len()
	out := make([]*big.Int, n)

	err := pool.Run(n, func(i int) error {
		ni, err := st.Get(store.Product, 0, i)
		if err != nil {
			return errors.Wrapf(err, "finalize: slot %d", i)
		}
		r, err := rems.At(i)
		if err != nil {
			return errors.Wrapf(err, "finalize: slot %d", i)
		}
		t, err := bignum.QuoExact(r, ni)
		if err != nil {
			return errors.Wrapf(err, "finalize: invariant violation at slot %d: leaf remainder not divisible by modulus", i)
		}
		g := bignum.GCD(t, ni)
		if g.Sign() == 0 || new(big.Int).Mod(ni, g).Sign() != 0 {
			return errors.Errorf("finalize: invariant violation at slot %d: gcd does not divide modulus", i)
		}
		out[i] = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := rems.Release(); err != nil {
		return nil, err
	}
	return out, nil
}
