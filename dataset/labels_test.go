package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupIndex(t *testing.T) {
	for _, name := range []string{"HC", "Hc", "hc", "CTL", "ctl"} {
		assert.Equal(t, 0, GroupIndex(name), "control synonym %q", name)
	}
	for _, name := range []string{"P", "PD", "pd", "Parkinson", "Parkinsons", "Parkinson's", "PARKINSON'S", "parkinson"} {
		assert.Equal(t, 1, GroupIndex(name), "patient synonym %q", name)
	}
	for _, name := range []string{"", "unknown", "HCX", "hC"} {
		assert.Equal(t, GroupUnmapped, GroupIndex(name), "unmapped name %q", name)
	}
}

func TestCombined(t *testing.T) {
	ls := &LabelSet{
		Conditions: []int{0, 1, 2, 0},
		Groups:     []int{0, 0, 1, 1},
	}
	assert.Equal(t, []int{0, 1, 5, 3}, ls.Combined())
}

func TestRemapContiguous(t *testing.T) {
	ls := &LabelSet{
		Conditions:   []int{0, 2, 0, 2},
		Groups:       []int{0, 0, 1, 1},
		SubjectIDs:   []int{0, 0, 1, 1},
		DatasetNames: []string{"a", "a", "b", "b"},
	}
	// Combined: {0, 2, 3, 5} -> contiguous {0, 1, 2, 3}.
	labels, remap, numClasses := ls.RemapContiguous()
	assert.Equal(t, 4, numClasses)
	assert.Equal(t, []int{0, 1, 2, 3}, labels)
	assert.Equal(t, map[int]int{0: 0, 2: 1, 3: 2, 5: 3}, remap)
}

func TestRemapContiguousAppliesToEverySample(t *testing.T) {
	ls := &LabelSet{
		Conditions: []int{1, 1, 1},
		Groups:     []int{1, 1, 1},
	}
	labels, remap, numClasses := ls.RemapContiguous()
	assert.Equal(t, 1, numClasses)
	assert.Equal(t, []int{0, 0, 0}, labels)
	assert.Equal(t, map[int]int{4: 0}, remap)
}

func TestSubset(t *testing.T) {
	ls := &LabelSet{
		Conditions:   []int{0, 1, 2},
		Groups:       []int{0, 1, 0},
		SubjectIDs:   []int{5, 6, 7},
		DatasetNames: []string{"a", "b", "c"},
	}
	sub := ls.Subset([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, []int{2, 0}, sub.Conditions)
	assert.Equal(t, []int{7, 5}, sub.SubjectIDs)
	assert.Equal(t, []string{"c", "a"}, sub.DatasetNames)
}
