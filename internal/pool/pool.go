// Package pool loads the transposon mutant pool reference (barcode to
// insertion site) and the gene table used to place insertions in genes.
package pool

import (
	"io"

	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/table"
)

// Entry is one barcode of the mutant pool and its insertion site.
type Entry struct {
	Barcode   string
	RCBarcode string
	Scaffold  string
	Strand    string
	Pos       int64
	LocusTag  string // empty when the insertion is intergenic or unassigned
}

// Pool is the deduplicated pool reference keyed by barcode.
type Pool struct {
	entries    []*Entry
	byBarcode  map[string]*Entry
	duplicates int
}

// Load reads a pool file. Only the first row of a repeated barcode is kept.
func Load(r io.Reader) (*Pool, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	barcodeIdx, err := tr.Require("barcode")
	if err != nil {
		return nil, err
	}
	scaffoldIdx, err := tr.Require("scaffold", "scaffoldId")
	if err != nil {
		return nil, err
	}
	posIdx, err := tr.Require("pos", "position")
	if err != nil {
		return nil, err
	}
	rcIdx := tr.Index("rcbarcode")
	strandIdx := tr.Index("strand")
	locusIdx := tr.Index("locus_tag", "locusId")

	p := &Pool{byBarcode: make(map[string]*Entry)}
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return p, nil
		}

		var pos int64
		if s := row.Get(posIdx); !table.IsMissing(s) {
			if pos, err = table.ParseInt(s); err != nil {
				return nil, tr.Errorf("invalid position: %s", s)
			}
		}
		locus := row.Get(locusIdx)
		if table.IsMissing(locus) {
			locus = ""
		}
		p.Add(&Entry{
			Barcode:   row.Get(barcodeIdx),
			RCBarcode: row.Get(rcIdx),
			Scaffold:  row.Get(scaffoldIdx),
			Strand:    row.Get(strandIdx),
			Pos:       pos,
			LocusTag:  locus,
		})
	}
}

// New builds a pool from entries, dropping repeated barcodes.
func New(entries []*Entry) *Pool {
	p := &Pool{byBarcode: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		p.Add(e)
	}
	return p
}

// Add inserts an entry unless its barcode is already present.
// It reports whether the entry was added.
func (p *Pool) Add(e *Entry) bool {
	if _, ok := p.byBarcode[e.Barcode]; ok {
		p.duplicates++
		return false
	}
	p.byBarcode[e.Barcode] = e
	p.entries = append(p.entries, e)
	return true
}

// Lookup returns the entry for an exact barcode match.
func (p *Pool) Lookup(barcode string) (*Entry, bool) {
	e, ok := p.byBarcode[barcode]
	return e, ok
}

// Len returns the number of distinct barcodes.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Duplicates returns how many repeated barcodes were dropped.
func (p *Pool) Duplicates() int {
	return p.duplicates
}

// Entries returns the entries in load order.
func (p *Pool) Entries() []*Entry {
	return p.entries
}

// AssignLoci sets the locus tag of every entry that lacks one and whose
// insertion falls within the [lo, hi] fraction of a gene (measured from
// the gene's start codon). Returns the number of entries assigned.
func (p *Pool) AssignLoci(loc *Locator, lo, hi float64, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	assigned, intergenic := 0, 0
	for _, e := range p.entries {
		if e.LocusTag != "" || e.Pos == 0 {
			continue
		}
		if g := loc.Locate(e.Scaffold, e.Pos, lo, hi); g != nil {
			e.LocusTag = g.LocusTag
			assigned++
		} else {
			intergenic++
		}
	}
	logger.Info("assigned pool insertions to genes",
		zap.Int("assigned", assigned),
		zap.Int("unassigned", intergenic),
		zap.Float64("min_fraction", lo),
		zap.Float64("max_fraction", hi))
	return assigned
}
