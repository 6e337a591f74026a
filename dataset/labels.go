package dataset

import (
	"sort"
	"strings"
)

// Condition indices are fixed by the acquisition protocol.
const (
	CondTarget   = 0
	CondStandard = 1
	CondNovelty  = 2

	NumConditions = 3
)

// ConditionNames lists the three conditions in their fixed order.
var ConditionNames = []string{"target", "standard", "novelty"}

// GroupUnmapped is the sentinel group index for unrecognized names.
const GroupUnmapped = -1

// healthyControls and the parkinson synonym set fold the group-name
// spellings seen across acquisition sites onto two indices.
var healthyControls = map[string]bool{
	"HC": true, "Hc": true, "hc": true, "CTL": true, "ctl": true,
}

// GroupIndex maps a group name to its index: healthy controls to 0,
// the Parkinson cohort to 1, anything else to GroupUnmapped.
func GroupIndex(name string) int {
	if healthyControls[name] {
		return 0
	}
	switch strings.ToLower(name) {
	case "p", "pd", "parkinson", "parkinsons", "parkinson's":
		return 1
	}
	return GroupUnmapped
}

// LabelSet carries the per-sample metadata emitted alongside samples.
// All four sequences share one length, the sample count.
type LabelSet struct {
	Conditions   []int
	Groups       []int
	SubjectIDs   []int
	DatasetNames []string
}

// Len returns the sample count.
func (ls *LabelSet) Len() int { return len(ls.Conditions) }

func (ls *LabelSet) append(condition, group, subject int, name string) {
	ls.Conditions = append(ls.Conditions, condition)
	ls.Groups = append(ls.Groups, group)
	ls.SubjectIDs = append(ls.SubjectIDs, subject)
	ls.DatasetNames = append(ls.DatasetNames, name)
}

// Subset returns a new LabelSet holding the entries at indices.
func (ls *LabelSet) Subset(indices []int) *LabelSet {
	sub := &LabelSet{
		Conditions:   make([]int, len(indices)),
		Groups:       make([]int, len(indices)),
		SubjectIDs:   make([]int, len(indices)),
		DatasetNames: make([]string, len(indices)),
	}
	for i, idx := range indices {
		sub.Conditions[i] = ls.Conditions[idx]
		sub.Groups[i] = ls.Groups[idx]
		sub.SubjectIDs[i] = ls.SubjectIDs[idx]
		sub.DatasetNames[i] = ls.DatasetNames[idx]
	}
	return sub
}

// Combined returns the multi-class target per sample:
// group_index*3 + condition_index.
func (ls *LabelSet) Combined() []int {
	combined := make([]int, ls.Len())
	for i := range combined {
		combined[i] = ls.Groups[i]*NumConditions + ls.Conditions[i]
	}
	return combined
}

// RemapContiguous computes the combined labels, remaps the distinct
// values actually present onto [0, k), and returns the remapped labels,
// the old-to-new table, and k. The same remap must be applied to every
// sample before any downstream split, which is why the table is
// returned explicitly.
func (ls *LabelSet) RemapContiguous() (labels []int, remap map[int]int, numClasses int) {
	combined := ls.Combined()

	distinct := make(map[int]bool)
	for _, c := range combined {
		distinct[c] = true
	}
	ordered := make([]int, 0, len(distinct))
	for c := range distinct {
		ordered = append(ordered, c)
	}
	sort.Ints(ordered)

	remap = make(map[int]int, len(ordered))
	for newIdx, old := range ordered {
		remap[old] = newIdx
	}

	labels = make([]int, len(combined))
	for i, c := range combined {
		labels[i] = remap[c]
	}
	return labels, remap, len(ordered)
}
