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

// Package tree implements the batch-GCD engine: a disk-backed product tree
// over the input moduli, a remainder-tree descent, and the per-leaf gcd
// finalization. Intermediate levels live in a store so the working set stays
// bounded by the worker count plus one level, no matter how large the corpus.
package tree

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/rsacheck/batchgcd/store"
)

var one = big.NewInt(1)

// levelWidths returns the slot count of every tree level for n leaves, index 0
// being the leaf level. The last entry is always 1 (the root). The shape is a
// pure function of n; nothing about it needs to be persisted.
func levelWidths(n int) []int {
	widths := []int{n}
	for w := n; w > 1; {
		w = (w + 1) / 2
		widths = append(widths, w)
	}
	return widths
}

// Validate rejects input shapes the engine cannot run on: an empty corpus, or
// any modulus ≤ 1. It runs before Part A so a bad corpus never touches disk.
func Validate(moduli []*big.Int) error {
	if len(moduli) == 0 {
		return errors.New("empty modulus set")
	}
	for i, m := range moduli {
		if m == nil || m.Cmp(one) <= 0 {
			return errors.Errorf("modulus %d is not greater than 1", i)
		}
	}
	return nil
}

// Run executes the full engine over moduli: product tree, remainder descent,
// finalization. It returns the vector G with G[i] = gcd(N_i, Π_{j≠i} N_j) in
// input order. Binaries that want per-phase timing call Build, Descend and
// Finalize themselves; Run is the single-call form used by tests and embedders.
func Run(st *store.Store, moduli []*big.Int, pool *Pool, spillBudget int64) ([]*big.Int, error) {
	if err := Validate(moduli); err != nil {
		return nil, err
	}
	h, err := Build(st, moduli, pool)
	if err != nil {
		return nil, err
	}
	rems, err := Descend(st, len(moduli), h, pool, spillBudget)
	if err != nil {
		return nil, err
	}
	return Finalize(st, rems, pool)
}
