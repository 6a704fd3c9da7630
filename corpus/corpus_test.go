package corpus

import (
	"encoding/csv"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadTwoColumns(t *testing.T) {
	in := "key-a,15\nkey-b,35\n"
	c, err := Read(strings.NewReader(in), false)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("corpus has %d records, want 2", c.Len())
	}
	if c.ID(0) != "key-a" || c.ID(1) != "key-b" {
		t.Fatalf("unexpected ids: %v", c.IDs)
	}
	if c.Moduli[0].Int64() != 15 || c.Moduli[1].Int64() != 35 {
		t.Fatalf("unexpected moduli: %v", c.Moduli)
	}
}

func TestReadSingleColumnNumbersRecords(t *testing.T) {
	c, err := Read(strings.NewReader("15\n35\n77\n"), false)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if c.ID(0) != "1" || c.ID(2) != "3" {
		t.Fatalf("unexpected ids: %v", c.IDs)
	}
}

func TestReadHex(t *testing.T) {
	c, err := Read(strings.NewReader("key,0xff\n"), true)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if c.Moduli[0].Int64() != 255 {
		t.Fatalf("hex modulus = %s, want 255", c.Moduli[0])
	}
}

func TestReadSkipsCommentsAndBlanks(t *testing.T) {
	in := "# fleet dump 2024-03\n\n15\n\n35\n"
	c, err := Read(strings.NewReader(in), false)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("corpus has %d records, want 2", c.Len())
	}
}

func TestReadRejects(t *testing.T) {
	cases := []string{
		"",              // empty corpus
		"a,b,c\n",       // too many columns
		"key,notanum\n", // bad digits
		"key,-15\n",     // negative
	}
	for _, in := range cases {
		if _, err := Read(strings.NewReader(in), false); err == nil {
			t.Fatalf("Read(%q) expected error", in)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), false); err == nil {
		t.Fatalf("Load expected error for missing file")
	}
}

func testCorpus(moduli ...int64) *Corpus {
	c := &Corpus{}
	for i, m := range moduli {
		c.IDs = append(c.IDs, "id"+string(rune('a'+i)))
		c.Moduli = append(c.Moduli, big.NewInt(m))
	}
	return c
}

func TestClassifyRouting(t *testing.T) {
	c := testCorpus(15, 22, 35, 77)
	g := []*big.Int{big.NewInt(5), big.NewInt(1), big.NewInt(5), big.NewInt(77)}

	rep, err := Classify(c, g)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	if len(rep.Compromised) != 2 {
		t.Fatalf("compromised = %d, want 2", len(rep.Compromised))
	}
	first := rep.Compromised[0]
	if first.Index != 0 || first.Factor.Int64() != 5 || first.Cofactor.Int64() != 3 {
		t.Fatalf("unexpected first finding: %+v", first)
	}
	second := rep.Compromised[1]
	if second.Index != 2 || second.Cofactor.Int64() != 7 {
		t.Fatalf("unexpected second finding: %+v", second)
	}

	if len(rep.Duplicates) != 1 || rep.Duplicates[0].Index != 3 {
		t.Fatalf("unexpected duplicates: %+v", rep.Duplicates)
	}
}

func TestClassifyInvariantViolations(t *testing.T) {
	c := testCorpus(15)
	// zero gcd, a non-divisor, a value above the modulus, and a wrong-length vector
	bad := [][]*big.Int{
		{big.NewInt(0)},
		{big.NewInt(7)},
		{big.NewInt(45)},
		{},
	}
	for _, g := range bad {
		if _, err := Classify(c, g); err == nil {
			t.Fatalf("Classify(%v) expected error", g)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	rep := &Report{
		Compromised: []Compromised{{
			ID: "key-a", Modulus: big.NewInt(15), Factor: big.NewInt(5), Cofactor: big.NewInt(3),
		}},
		Duplicates: []Duplicate{{ID: "key-b", Modulus: big.NewInt(77)}},
	}
	if err := rep.WriteFiles(dir); err != nil {
		t.Fatalf("WriteFiles returned error: %v", err)
	}

	comp := readCSV(t, filepath.Join(dir, "compromised.csv"))
	if len(comp) != 2 || comp[0][0] != "id" {
		t.Fatalf("unexpected compromised.csv: %v", comp)
	}
	if comp[1][1] != "15" || comp[1][2] != "5" || comp[1][3] != "3" {
		t.Fatalf("unexpected compromised row: %v", comp[1])
	}

	dups := readCSV(t, filepath.Join(dir, "duplicates.csv"))
	if len(dups) != 2 || dups[1][0] != "key-b" {
		t.Fatalf("unexpected duplicates.csv: %v", dups)
	}
}

func TestWriteFilesEmptyReport(t *testing.T) {
	dir := t.TempDir()
	if err := (&Report{}).WriteFiles(dir); err != nil {
		t.Fatalf("WriteFiles returned error: %v", err)
	}
	// Headers only, but both files must exist.
	for _, name := range []string{"compromised.csv", "duplicates.csv"} {
		rows := readCSV(t, filepath.Join(dir, name))
		if len(rows) != 1 {
			t.Fatalf("%s has %d rows, want header only", name, len(rows))
		}
	}
}

func TestOracle(t *testing.T) {
	g := Oracle([]*big.Int{big.NewInt(15), big.NewInt(22), big.NewInt(35)})
	want := []int64{5, 1, 5}
	for i, w := range want {
		if g[i].Int64() != w {
			t.Fatalf("slot %d: got %s, want %d", i, g[i], w)
		}
	}
}

func TestOracleDuplicates(t *testing.T) {
	g := Oracle([]*big.Int{big.NewInt(77), big.NewInt(77), big.NewInt(13)})
	want := []int64{77, 77, 1}
	for i, w := range want {
		if g[i].Int64() != w {
			t.Fatalf("slot %d: got %s, want %d", i, g[i], w)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}
