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

package bignum

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/remyoudompheng/bigfft"
)

// fftBits is the operand size above which multiplication is routed through
// the FFT path. Below it math/big's Karatsuba kernels are faster.
const fftBits = 100_000

var one = big.NewInt(1)

// Parse decodes s as a non-negative integer in the given base (10 or 16).
// Hex strings may carry an optional 0x prefix.
func Parse(s string, base int) (*big.Int, error) {
	if base != 10 && base != 16 {
		return nil, errors.Errorf("unsupported base %d", base)
	}
	s = strings.TrimSpace(s)
	if base == 16 {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, errors.Errorf("malformed base-%d integer: %q", base, s)
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("negative value not allowed: %q", s)
	}
	return v, nil
}

// Mul returns x*y. Operands beyond fftBits go through bigfft, which wins by a
// wide margin on the root-near product levels where values reach millions of
// bits.
func Mul(x, y *big.Int) *big.Int {
	if x.BitLen() >= fftBits && y.BitLen() >= fftBits {
		return bigfft.Mul(x, y)
	}
	return new(big.Int).Mul(x, y)
}

// Square returns x*x through the same size-dispatched path as Mul.
func Square(x *big.Int) *big.Int {
	return Mul(x, x)
}

// Mod returns a mod m. A zero modulus is rejected rather than left to panic
// inside math/big.
func Mod(a, m *big.Int) (*big.Int, error) {
	if m.Sign() == 0 {
		return nil, errors.New("modulus is zero")
	}
	return new(big.Int).Mod(a, m), nil
}

// QuoExact returns a/b and fails unless b divides a exactly. The engine only
// divides where divisibility is guaranteed, so a nonzero remainder means a
// broken invariant upstream, not bad input.
func QuoExact(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errors.New("division by zero")
	}
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		return nil, errors.Errorf("%d-bit value not divisible by %d-bit divisor", a.BitLen(), b.BitLen())
	}
	return q, nil
}

// GCD returns the greatest common divisor of a and b. GCD(0, b) = b.
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// IsOne reports whether v equals 1.
func IsOne(v *big.Int) bool {
	return v.Cmp(one) == 0
}

// Marshal encodes v as its minimal big-endian byte form. Zero encodes to an
// empty slice.
func Marshal(v *big.Int) []byte {
	return v.Bytes()
}

// Unmarshal decodes the big-endian byte form produced by Marshal.
func Unmarshal(data []byte) *big.Int {
	return new(big.Int).SetBytes(data)
}
