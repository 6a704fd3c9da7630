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

package store

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/rsacheck/batchgcd/bignum"
)

// Kind selects the tree a slot belongs to. Product and remainder entries for
// the same (level, slot) coexist during the descent, so they live in separate
// namespaces.
type Kind string

const (
	Product   Kind = "p"
	Remainder Kind = "r"
)

// ErrNotExist is returned by Get when the requested slot has not been written.
// The schedulers guarantee writes-before-reads, so hitting it mid-run means a
// scheduling bug rather than a transient condition.
var ErrNotExist = errors.New("store: entry does not exist")

// Store keeps one integer per (kind, level, slot) as a snappy-framed file under
// a working directory. Entry names are derived from the key alone, so a worker
// that wrote a slot and another that later reads it need no shared index.
//
// Writes go to a tempfile in the destination directory followed by a rename,
// which on POSIX filesystems makes each entry appear atomically: a concurrent
// reader sees either the complete value or ErrNotExist.
type Store struct {
	dir string
}

// New opens a store rooted at dir, creating the directory if needed. The
// directory is expected to be empty at the start of a run; the store neither
// cleans stale entries nor preserves its own across runs.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the working directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) levelDir(kind Kind, level int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%02d", kind, level))
}

func (s *Store) path(kind Kind, level, slot int) string {
	return filepath.Join(s.levelDir(kind, level), fmt.Sprintf("%09d.num", slot))
}

// Put persists v under (kind, level, slot). The value is visible to readers
// only after the final rename.
func (s *Store) Put(kind Kind, level, slot int, v *big.Int) error {
	dir := s.levelDir(kind, level)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WithStack(err)
	}

	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()

	if _, err := f.Write(snappy.Encode(nil, bignum.Marshal(v))); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp, s.path(kind, level, slot)); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

// Get loads the value stored under (kind, level, slot).
func (s *Store) Get(kind Kind, level, slot int) (*big.Int, error) {
	data, err := os.ReadFile(s.path(kind, level, slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotExist, "%s level %d slot %d", kind, level, slot)
		}
		return nil, errors.WithStack(err)
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt entry %s level %d slot %d", kind, level, slot)
	}
	return bignum.Unmarshal(raw), nil
}

// Drop releases the storage for a single slot. Dropping a slot that was never
// written, or was already dropped, is not an error.
func (s *Store) Drop(kind Kind, level, slot int) error {
	if err := os.Remove(s.path(kind, level, slot)); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// DropLevel releases every slot of a level at once.
func (s *Store) DropLevel(kind Kind, level int) error {
	if err := os.RemoveAll(s.levelDir(kind, level)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
