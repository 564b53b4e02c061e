// Package barseq loads barcode read-count tables produced by the BarSeq
// counting step: the combined result.poolcount, its per-sample
// result.colsum summary, and raw per-sample .codes files.
package barseq

import (
	"io"
	"strings"

	"github.com/rbseq/phbfit/internal/table"
)

// Fixed leading columns of a poolcount table. All columns after these hold
// one read count per sample.
const (
	ColBarcode   = "barcode"
	ColRCBarcode = "rcbarcode"
	ColScaffold  = "scaffold"
	ColStrand    = "strand"
	ColPos       = "pos"
)

// ReadCountRecord is the read count of one barcode in one sample.
type ReadCountRecord struct {
	Barcode   string
	RCBarcode string
	Scaffold  string
	Strand    string
	Pos       int64
	Sample    string
	Count     int64
}

// BarcodeCount is a bare (barcode, count) observation in a sample.
type BarcodeCount struct {
	Barcode string
	Sample  string
	Count   int64
}

// ColumnSum is the per-sample read summary from result.colsum.
type ColumnSum struct {
	Sample      string
	RawReads    int64
	MappedReads int64
}

// Fraction returns the fraction of raw reads that were assigned to pool
// barcodes, or 0 when there were no reads.
func (c ColumnSum) Fraction() float64 {
	if c.RawReads == 0 {
		return 0
	}
	return float64(c.MappedReads) / float64(c.RawReads)
}

type recordKey struct {
	barcode, sample string
}

// LoadPoolCount reads a wide poolcount table into long-format records,
// one per barcode and sample. A barcode appearing twice is a parse error.
func LoadPoolCount(r io.Reader) ([]ReadCountRecord, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	fixed := [...]string{ColBarcode, ColRCBarcode, ColScaffold, ColStrand, ColPos}
	var idx [len(fixed)]int
	for i, name := range fixed {
		if idx[i], err = tr.Require(name); err != nil {
			return nil, err
		}
	}
	isFixed := make(map[int]bool, len(fixed))
	for _, i := range idx {
		isFixed[i] = true
	}

	type sampleCol struct {
		name string
		idx  int
	}
	var samples []sampleCol
	for i, name := range tr.Header() {
		if !isFixed[i] {
			samples = append(samples, sampleCol{name: name, idx: i})
		}
	}
	if len(samples) == 0 {
		return nil, tr.Errorf("no sample columns found in poolcount header")
	}

	seen := make(map[recordKey]bool)
	var records []ReadCountRecord
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		if len(row) < len(tr.Header()) {
			return nil, tr.Errorf("expected %d columns, found %d", len(tr.Header()), len(row))
		}

		barcode := row[idx[0]]
		var pos int64
		if p := row[idx[4]]; !table.IsMissing(p) {
			if pos, err = table.ParseInt(p); err != nil {
				return nil, tr.Errorf("invalid position: %s", p)
			}
		}

		for _, s := range samples {
			k := recordKey{barcode, s.name}
			if seen[k] {
				return nil, tr.Errorf("duplicate barcode %s for sample %s", barcode, s.name)
			}
			seen[k] = true

			count, err := table.ParseInt(row[s.idx])
			if err != nil {
				return nil, tr.Errorf("invalid count for sample %s: %s", s.name, row[s.idx])
			}
			records = append(records, ReadCountRecord{
				Barcode:   barcode,
				RCBarcode: row[idx[1]],
				Scaffold:  row[idx[2]],
				Strand:    row[idx[3]],
				Pos:       pos,
				Sample:    s.name,
				Count:     count,
			})
		}
	}
	return records, nil
}

// LoadColSums reads a result.colsum table.
func LoadColSums(r io.Reader) ([]ColumnSum, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	sampleIdx, err := tr.Require("Index", "sample", "SetName")
	if err != nil {
		return nil, err
	}
	rawIdx, err := tr.Require("nReads", "raw_reads")
	if err != nil {
		return nil, err
	}
	usedIdx, err := tr.Require("nUsed", "mapped_reads", "nMapped")
	if err != nil {
		return nil, err
	}

	var sums []ColumnSum
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return sums, nil
		}
		raw, err := table.ParseInt(row.Get(rawIdx))
		if err != nil {
			return nil, tr.Errorf("invalid read count: %s", row.Get(rawIdx))
		}
		used, err := table.ParseInt(row.Get(usedIdx))
		if err != nil {
			return nil, tr.Errorf("invalid mapped read count: %s", row.Get(usedIdx))
		}
		sums = append(sums, ColumnSum{
			Sample:      row.Get(sampleIdx),
			RawReads:    raw,
			MappedReads: used,
		})
	}
}

// LoadCodes reads a .codes file: a barcode column followed by one count
// column whose header names the sample. If sample is non-empty it
// overrides the header name.
func LoadCodes(r io.Reader, sample string) ([]BarcodeCount, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	header := tr.Header()
	if len(header) < 2 {
		return nil, tr.Errorf("codes file needs barcode and count columns, found %d", len(header))
	}
	barcodeIdx := tr.Index(ColBarcode)
	if barcodeIdx < 0 {
		barcodeIdx = 0
	}
	countIdx := 1
	if barcodeIdx == 1 {
		countIdx = 0
	}
	if sample == "" {
		sample = strings.TrimSpace(header[countIdx])
	}

	var obs []BarcodeCount
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return obs, nil
		}
		count, err := table.ParseInt(row.Get(countIdx))
		if err != nil {
			return nil, tr.Errorf("invalid count: %s", row.Get(countIdx))
		}
		obs = append(obs, BarcodeCount{Barcode: row.Get(barcodeIdx), Sample: sample, Count: count})
	}
}

// Observations projects read-count records to bare barcode observations.
func Observations(records []ReadCountRecord) []BarcodeCount {
	obs := make([]BarcodeCount, len(records))
	for i, r := range records {
		obs[i] = BarcodeCount{Barcode: r.Barcode, Sample: r.Sample, Count: r.Count}
	}
	return obs
}

// Samples returns the distinct sample names in first-seen order.
func Samples(records []ReadCountRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if !seen[r.Sample] {
			seen[r.Sample] = true
			names = append(names, r.Sample)
		}
	}
	return names
}
