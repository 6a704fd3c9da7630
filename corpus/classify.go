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
	"encoding/csv"
	"math/big"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/rsacheck/batchgcd/bignum"
)

// Compromised records a modulus whose gcd against the rest of the corpus is a
// proper nontrivial divisor. Factor · Cofactor reconstructs the modulus, so
// the corresponding private key is fully recovered.
type Compromised struct {
	Index    int
	ID       string
	Modulus  *big.Int
	Factor   *big.Int
	Cofactor *big.Int
}

// Duplicate records a modulus that divides the product of the others — almost
// always the same key submitted twice.
type Duplicate struct {
	Index   int
	ID      string
	Modulus *big.Int
}

// Report is the classified view of a result vector.
type Report struct {
	Compromised []Compromised
	Duplicates  []Duplicate
}

// Classify routes each G[i] in input order. G = 1 is clean; a proper divisor
// marks the modulus compromised and yields both factors; G equal to the
// modulus marks a duplicate. Any other shape cannot come out of a correct
// engine and is reported as an invariant violation rather than a finding.
func Classify(c *Corpus, g []*big.Int) (*Report, error) {
	if len(g) != c.Len() {
		return nil, errors.Errorf("result vector has %d entries for %d moduli", len(g), c.Len())
	}

	rep := &Report{}
	for i, gi := range g {
		ni := c.Moduli[i]
		switch {
		case bignum.IsOne(gi):
			// Coprime to the rest of the corpus.
		case gi.Cmp(ni) == 0:
			rep.Duplicates = append(rep.Duplicates, Duplicate{Index: i, ID: c.ID(i), Modulus: ni})
		case gi.Sign() > 0 && gi.Cmp(ni) < 0 && new(big.Int).Mod(ni, gi).Sign() == 0:
			cof, err := bignum.QuoExact(ni, gi)
			if err != nil {
				return nil, errors.Wrapf(err, "classify: slot %d", i)
			}
			rep.Compromised = append(rep.Compromised, Compromised{
				Index:    i,
				ID:       c.ID(i),
				Modulus:  ni,
				Factor:   gi,
				Cofactor: cof,
			})
		default:
			return nil, errors.Errorf("classify: invariant violation at slot %d: gcd is neither 1, a proper divisor, nor the modulus", i)
		}
	}
	return rep, nil
}

// WriteFiles writes compromised.csv and duplicates.csv under dir. Both files
// are always produced, headers included, even when empty, so downstream
// tooling never has to probe for existence.
func (r *Report) WriteFiles(dir string) error {
	comp := make([][]string, 0, len(r.Compromised)+1)
	comp = append(comp, []string{"id", "modulus", "factor", "cofactor"})
	for _, c := range r.Compromised {
		comp = append(comp, []string{c.ID, c.Modulus.String(), c.Factor.String(), c.Cofactor.String()})
	}
	if err := writeCSV(filepath.Join(dir, "compromised.csv"), comp); err != nil {
		return err
	}

	dups := make([][]string, 0, len(r.Duplicates)+1)
	dups = append(dups, []string{"id", "modulus"})
	for _, d := range r.Duplicates {
		dups = append(dups, []string{d.ID, d.Modulus.String()})
	}
	return writeCSV(filepath.Join(dir, "duplicates.csv"), dups)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return errors.WithStack(err)
	}
	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return errors.WithStack(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}
