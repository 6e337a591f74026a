package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexkit/eeg-bridge/tensor"
)

func TestParseClassSpec(t *testing.T) {
	tests := []struct {
		in   string
		want ClassSpec
	}{
		{"PD_target", ClassSpec{Group: 1, Condition: CondTarget}},
		{"HC_standard", ClassSpec{Group: 0, Condition: CondStandard}},
		{"ctl_novelty", ClassSpec{Group: 0, Condition: CondNovelty}},
		{"Parkinson's_target", ClassSpec{Group: 1, Condition: CondTarget}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClassSpec(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseClassSpecRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "target", "_target", "PD_", "PD_bogus", "XX_target"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseClassSpec(in)
			assert.Error(t, err)
		})
	}
}

func TestFilterByClass(t *testing.T) {
	mk := func(v float32) *tensor.Tensor {
		tt, err := tensor.New([]int{1}, []float32{v})
		require.NoError(t, err)
		return tt
	}

	samples := []*tensor.Tensor{mk(0), mk(1), mk(2), mk(3), mk(4), mk(5)}
	labels := &LabelSet{
		Conditions:   []int{0, 1, 2, 0, 1, 2},
		Groups:       []int{0, 0, 0, 1, 1, 1},
		SubjectIDs:   []int{0, 0, 0, 1, 1, 1},
		DatasetNames: []string{"a", "a", "a", "b", "b", "b"},
	}

	filtered, sub, kept, err := FilterByClass(samples, labels, []string{"PD_target"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, []int{3}, kept)
	assert.Equal(t, float32(3), filtered[0].Data[0])
	assert.Equal(t, []int{0}, sub.Conditions)
	assert.Equal(t, []int{1}, sub.Groups)
	assert.Equal(t, []string{"b"}, sub.DatasetNames)

	filtered, sub, kept, err = FilterByClass(samples, labels, []string{"HC_standard", "PD_standard"})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, []int{1, 4}, kept)
	assert.Equal(t, []int{1, 1}, sub.Conditions)
	assert.Equal(t, []int{0, 1}, sub.Groups)
}

func TestFilterByClassBadSpecFailsBeforeFiltering(t *testing.T) {
	labels := &LabelSet{Conditions: []int{0}, Groups: []int{0}, SubjectIDs: []int{0}, DatasetNames: []string{"a"}}
	tt, err := tensor.New([]int{1}, []float32{1})
	require.NoError(t, err)

	_, _, _, err = FilterByClass([]*tensor.Tensor{tt}, labels, []string{"nope"})
	assert.Error(t, err)
}

func TestFilterByClassLengthMismatch(t *testing.T) {
	labels := &LabelSet{Conditions: []int{0, 0}, Groups: []int{0, 0}}
	_, _, _, err := FilterByClass(nil, labels, []string{"HC_target"})
	assert.Error(t, err)
}
