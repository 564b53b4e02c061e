// Package annotation loads the genome annotation table (gene names,
// eggNOG names, COG processes, pathways) keyed by locus tag.
package annotation

import (
	"fmt"
	"io"
	"strings"

	"github.com/rbseq/phbfit/internal/table"
)

// Record holds the annotation of a single gene.
type Record struct {
	LocusTag   string
	GeneName   string
	EggNOGName string
	COGProcess string
	Pathway    string
}

// Index maps locus tag to its annotation record.
type Index map[string]*Record

// Get returns the record for a locus tag.
func (idx Index) Get(locusTag string) (*Record, bool) {
	rec, ok := idx[locusTag]
	return rec, ok
}

// DisplayName returns the gene name for a locus tag, falling back to the
// locus tag itself when the gene is unannotated or has no name.
func (idx Index) DisplayName(locusTag string) string {
	if rec, ok := idx[locusTag]; ok && rec.GeneName != "" {
		return rec.GeneName
	}
	return locusTag
}

// Load reads an annotation table. The delimiter is chosen from name
// (".csv" is comma-separated). Rows repeating a locus tag are dropped,
// keeping the first. Returns the index and the number of dropped rows.
func Load(name string, r io.Reader) (Index, int, error) {
	tr, err := table.NewReaderFor(name, r)
	if err != nil {
		return nil, 0, fmt.Errorf("annotation %s: %w", name, err)
	}
	defer tr.Close()

	locusIdx, err := tr.Require("locus_tag", "locusId")
	if err != nil {
		return nil, 0, fmt.Errorf("annotation %s: %w", name, err)
	}
	geneIdx := tr.Index("gene_name", "Gene_name", "gene", "Name")
	eggIdx := tr.Index("eggNOG_name", "eggNOG_Name", "Preferred_name")
	cogIdx := tr.Index("COG_Process", "COG_process", "COG_category")
	pathIdx := tr.Index("Pathway", "pathway")

	idx := make(Index)
	dropped := 0
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, 0, fmt.Errorf("annotation %s: %w", name, err)
		}
		if row == nil {
			return idx, dropped, nil
		}
		locus := strings.TrimSpace(row.Get(locusIdx))
		if locus == "" {
			continue
		}
		if _, dup := idx[locus]; dup {
			dropped++
			continue
		}
		idx[locus] = &Record{
			LocusTag:   locus,
			GeneName:   clean(row.Get(geneIdx)),
			EggNOGName: clean(row.Get(eggIdx)),
			COGProcess: clean(row.Get(cogIdx)),
			Pathway:    clean(row.Get(pathIdx)),
		}
	}
}

func clean(s string) string {
	if table.IsMissing(s) {
		return ""
	}
	return strings.TrimSpace(s)
}
