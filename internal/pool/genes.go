package pool

import (
	"io"
	"sort"

	"github.com/rbseq/phbfit/internal/table"
)

// Gene is a feature of the genome annotation with 1-based inclusive
// coordinates.
type Gene struct {
	LocusTag string
	Scaffold string
	Begin    int64
	End      int64
	Strand   string
	Name     string
}

// Contains reports whether pos lies within the gene.
func (g *Gene) Contains(pos int64) bool {
	return pos >= g.Begin && pos <= g.End
}

// Fraction returns the relative position of pos along the gene, 0 at the
// start codon and 1 at the stop codon.
func (g *Gene) Fraction(pos int64) float64 {
	length := g.End - g.Begin
	if length <= 0 {
		return 0.5
	}
	if g.Strand == "-" {
		return float64(g.End-pos) / float64(length)
	}
	return float64(pos-g.Begin) / float64(length)
}

// LoadGenes reads a gene table (locusId, scaffoldId, begin, end, strand).
func LoadGenes(r io.Reader) ([]*Gene, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	locusIdx, err := tr.Require("locusId", "locus_tag")
	if err != nil {
		return nil, err
	}
	scaffoldIdx, err := tr.Require("scaffoldId", "scaffold")
	if err != nil {
		return nil, err
	}
	beginIdx, err := tr.Require("begin", "start")
	if err != nil {
		return nil, err
	}
	endIdx, err := tr.Require("end")
	if err != nil {
		return nil, err
	}
	strandIdx := tr.Index("strand")
	nameIdx := tr.Index("name", "gene_name")

	var genes []*Gene
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return genes, nil
		}
		begin, err := table.ParseInt(row.Get(beginIdx))
		if err != nil {
			return nil, tr.Errorf("invalid begin: %s", row.Get(beginIdx))
		}
		end, err := table.ParseInt(row.Get(endIdx))
		if err != nil {
			return nil, tr.Errorf("invalid end: %s", row.Get(endIdx))
		}
		if end < begin {
			begin, end = end, begin
		}
		genes = append(genes, &Gene{
			LocusTag: row.Get(locusIdx),
			Scaffold: row.Get(scaffoldIdx),
			Begin:    begin,
			End:      end,
			Strand:   row.Get(strandIdx),
			Name:     row.Get(nameIdx),
		})
	}
}

// Locator finds the genes containing an insertion site.
type Locator struct {
	trees map[string]*IntervalTree
}

// NewLocator indexes genes by scaffold.
func NewLocator(genes []*Gene) *Locator {
	byScaffold := make(map[string][]*Gene)
	for _, g := range genes {
		byScaffold[g.Scaffold] = append(byScaffold[g.Scaffold], g)
	}
	loc := &Locator{trees: make(map[string]*IntervalTree, len(byScaffold))}
	for scaffold, gs := range byScaffold {
		loc.trees[scaffold] = BuildIntervalTree(gs)
	}
	return loc
}

// Overlaps returns all genes on scaffold containing pos.
func (l *Locator) Overlaps(scaffold string, pos int64) []*Gene {
	tree, ok := l.trees[scaffold]
	if !ok {
		return nil
	}
	return tree.FindOverlaps(pos)
}

// Locate returns the gene containing pos within its [lo, hi] fraction.
// When several genes qualify the smallest locus tag wins.
func (l *Locator) Locate(scaffold string, pos int64, lo, hi float64) *Gene {
	var hits []*Gene
	for _, g := range l.Overlaps(scaffold, pos) {
		if f := g.Fraction(pos); f >= lo && f <= hi {
			hits = append(hits, g)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].LocusTag < hits[j].LocusTag })
	return hits[0]
}
