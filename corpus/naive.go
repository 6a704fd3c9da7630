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

package corpus

import (
	"math/big"

	"github.com/rsacheck/batchgcd/bignum"
)

// Oracle computes G[i] = gcd(N_i, Π_{j≠i} N_j) by brute force, O(n²) modular
// multiplications. It accumulates Π_{j≠i} N_j mod N_i instead of the full
// product — gcd(a, b mod a) = gcd(a, b) — so even this slow path never builds
// a giant integer. It exists to audit the tree engine on small corpora.
func Oracle(moduli []*big.Int) []*big.Int {
	n := len(moduli)
	out := make([]*big.Int, n)
	acc := new(big.Int)
	for i, ni := range moduli {
		acc.SetInt64(1)
		for j, nj := range moduli {
			if j == i {
				continue
			}
			acc.Mul(acc, new(big.Int).Mod(nj, ni))
			acc.Mod(acc, ni)
			if acc.Sign() == 0 {
				break
			}
		}
		out[i] = bignum.GCD(acc, ni)
	}
	return out
}
