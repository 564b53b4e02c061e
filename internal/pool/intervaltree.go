package pool

import "sort"

// IntervalTree provides O(log n + k) overlap queries using a sorted-slice approach.
// Genes are loaded once and never modified after build.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[:i+1]
}

type interval struct {
	start int64
	end   int64
	gene  *Gene
}

// BuildIntervalTree creates an interval tree from a slice of genes.
func BuildIntervalTree(genes []*Gene) *IntervalTree {
	if len(genes) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(genes))
	for i, g := range genes {
		intervals[i] = interval{start: g.Begin, end: g.End, gene: g}
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Prefix max: once scanning leftwards passes an index whose prefix max
	// end is below pos, nothing further left can contain pos.
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// FindOverlaps returns all genes whose [Begin, End] range contains pos.
func (t *IntervalTree) FindOverlaps(pos int64) []*Gene {
	if len(t.intervals) == 0 {
		return nil
	}

	// hi is the first index with start > pos; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > pos
	})

	var result []*Gene
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] < pos {
			break
		}
		if t.intervals[i].end >= pos {
			result = append(result, t.intervals[i].gene)
		}
	}
	return result
}

// Len returns the number of intervals in the tree.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}
