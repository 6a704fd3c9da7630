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

// Package corpus handles everything around the engine: reading a modulus CSV,
// classifying the result vector, writing the reports, and the brute-force
// oracle used for auditing.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/rsacheck/batchgcd/bignum"
)

// Corpus is an ordered set of moduli with their caller-side identifiers. The
// two slices are always the same length; the engine never sees the IDs.
type Corpus struct {
	IDs    []string
	Moduli []*big.Int
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.Moduli)
}

// Load reads a corpus from a CSV file. Records are either `modulus` or
// `id,modulus`; in the one-column form the 1-based record number becomes the
// id. Blank lines and lines starting with # are skipped. hex selects base-16
// decoding of the modulus column, base 10 otherwise.
func Load(path string, hex bool) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Read(f, hex)
}

// Read is Load over an arbitrary reader.
func Read(r io.Reader, hex bool) (*Corpus, error) {
	base := 10
	if hex {
		base = 16
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	c := &Corpus{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", line)
		}

		var id, digits string
		switch len(rec) {
		case 1:
			id, digits = strconv.Itoa(line), rec[0]
		case 2:
			id, digits = rec[0], rec[1]
		default:
			return nil, errors.Errorf("record %d: expected 1 or 2 columns, got %d", line, len(rec))
		}

		m, err := bignum.Parse(digits, base)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", line)
		}
		c.IDs = append(c.IDs, id)
		c.Moduli = append(c.Moduli, m)
	}

	if c.Len() == 0 {
		return nil, errors.New("corpus is empty")
	}
	return c, nil
}

// ID returns the identifier of record i, falling back to the 1-based record
// number i+1 when the id slice is shorter than the modulus slice (hand-built
// corpora in tests).
func (c *Corpus) ID(i int) string {
	if i < len(c.IDs) {
		return c.IDs[i]
	}
	return fmt.Sprint(i + 1)
}
