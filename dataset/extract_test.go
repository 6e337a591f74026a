package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexkit/eeg-bridge/container"
)

// condWith builds one condition record holding a single numeric field.
func condWith(field string, dims []int, real, imag []float64) *container.Record {
	cond := container.NewRecord()
	cond.Set(field, &container.Array{Dims: dims, Real: real, Imag: imag})
	cond.Set("dimord", container.Chars("chan_time"))
	return cond
}

// subjectRecord builds a subject with the same payload for all three
// conditions and a cfg.dataset path naming its cohort.
func subjectRecord(dataset, field string, dims []int, real []float64) *container.Record {
	rec := container.NewRecord()
	for _, cond := range ConditionNames {
		rec.Set(cond, condWith(field, dims, real, nil))
	}
	cfg := container.NewRecord()
	cfg.Set("dataset", container.Chars(dataset))
	rec.Set("cfg", cfg)
	return rec
}

func seq(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
	}
	return vals
}

func TestExtractTwoSubjects(t *testing.T) {
	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{
			subjectRecord("C:\\eeg\\HC_sub01.set", "avg", []int{12, 50}, seq(600)),
			subjectRecord("/data/PD_sub02.set", "avg", []int{12, 50}, seq(600)),
		}},
	}

	ex := &Extractor{Kind: Erp}
	samples, labels, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)

	require.Len(t, samples, 6)
	require.Equal(t, 6, labels.Len())
	for _, s := range samples {
		assert.Equal(t, []int{12, 50}, s.Shape)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, labels.Conditions)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, labels.Groups)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, labels.SubjectIDs)
	assert.Equal(t, "HC_sub01", labels.DatasetNames[0])
	assert.Equal(t, "PD_sub02", labels.DatasetNames[3])
}

func TestExtractSkipsMissingCondition(t *testing.T) {
	rec := container.NewRecord()
	rec.Set("target", condWith("avg", []int{4}, seq(4), nil))
	// standard and novelty absent.

	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Erp, Groups: []string{"HC"}}
	samples, labels, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []int{CondTarget}, labels.Conditions)
}

func TestExtractFallsBackToTrialMean(t *testing.T) {
	// Two trials of a (2, 3) matrix; the fallback averages the leading
	// trial axis.
	trial0 := []float64{1, 2, 3, 4, 5, 6}
	trial1 := []float64{3, 4, 5, 6, 7, 8}
	rec := container.NewRecord()
	rec.Set("target", condWith("trial", []int{2, 2, 3}, append(trial0, trial1...), nil))

	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Erp, Groups: []string{"HC"}}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []int{2, 3}, samples[0].Shape)
	for i, want := range []float32{2, 3, 4, 5, 6, 7} {
		assert.InDelta(t, want, samples[0].Data[i], 1e-6)
	}
}

func TestExtractComplexMagnitude(t *testing.T) {
	rec := container.NewRecord()
	rec.Set("target", condWith("itpc", []int{2}, []float64{3, 0}, []float64{4, 5}))

	vars := map[string]container.Value{
		"itc_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: IntertrialCoherence, Groups: []string{"PD"}}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.InDelta(t, 5.0, samples[0].Data[0], 1e-6)
	assert.InDelta(t, 5.0, samples[0].Data[1], 1e-6)
}

func TestExtractSpectralReducesLeadingAxis(t *testing.T) {
	rec := container.NewRecord()
	rec.Set("target", condWith("fourierspctrm", []int{2, 3, 4}, seq(24), nil))

	vars := map[string]container.Value{
		"spectral_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Spectral, Groups: []string{"HC"}}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []int{3, 4}, samples[0].Shape)
	for i := 0; i < 12; i++ {
		assert.InDelta(t, float64(i)+6, samples[0].Data[i], 1e-6)
	}
}

func TestExtractConnectivityRiemannianReducesTrailingAxes(t *testing.T) {
	rec := container.NewRecord()
	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	rec.Set("target", condWith("cohspctrm", []int{2, 2, 2, 2}, vals, nil))

	vars := map[string]container.Value{
		"coherence_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Connectivity, Arch: Riemannian, Groups: []string{"HC"}}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []int{2, 2}, samples[0].Shape)
	for i, want := range []float32{2.5, 6.5, 10.5, 14.5} {
		assert.InDelta(t, want, samples[0].Data[i], 1e-6)
	}
}

func TestExtractScrubsNonFinite(t *testing.T) {
	rec := container.NewRecord()
	rec.Set("target", condWith("avg", []int{4},
		[]float64{1, math.NaN(), math.Inf(1), math.Inf(-1)}, nil))

	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Erp, Groups: []string{"HC"}}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []float32{1, 0, 0, 0}, samples[0].Data)
}

func TestExtractEmptyDataset(t *testing.T) {
	rec := container.NewRecord() // no condition fields at all

	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	ex := &Extractor{Kind: Erp}
	_, _, err := ex.Extract(vars, "test.eeg")

	var empty *EmptyDatasetError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "test.eeg", empty.Path)
	assert.Equal(t, Erp, empty.Kind)
	assert.Equal(t, 3, empty.Attempted)
	assert.Equal(t, 3, empty.Skipped)
}

func TestExtractNoRecordVariable(t *testing.T) {
	vars := map[string]container.Value{
		"fsample": &container.Array{Dims: []int{1}, Real: []float64{500}},
	}
	ex := &Extractor{Kind: Erp}
	_, _, err := ex.Extract(vars, "test.eeg")
	assert.Error(t, err)
}

func TestExtractAlternateRecordKey(t *testing.T) {
	rec := subjectRecord("HC_s.set", "avg", []int{4}, seq(4))
	vars := map[string]container.Value{
		"data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}
	ex := &Extractor{Kind: Erp}
	samples, _, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	assert.Len(t, samples, 3)
}

func TestExtractGroupOverrides(t *testing.T) {
	rec := subjectRecord("OFF_sub01.set", "avg", []int{4}, seq(4))
	vars := map[string]container.Value{
		"ERP_data": &container.RecordArray{Records: []container.RecordAccessor{rec}},
	}

	// Unknown cohort name keeps the sentinel.
	ex := &Extractor{Kind: Erp}
	_, labels, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	assert.Equal(t, GroupUnmapped, labels.Groups[0])

	// ExtraGroups maps it explicitly.
	ex = &Extractor{Kind: Erp, ExtraGroups: map[string]int{"OFF": 1}}
	_, labels, err = ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	assert.Equal(t, 1, labels.Groups[0])

	// An explicit group list wins over the dataset name.
	ex = &Extractor{Kind: Erp, Groups: []string{"HC"}}
	_, labels, err = ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	assert.Equal(t, 0, labels.Groups[0])
}

func TestExtractSingleRecordVariable(t *testing.T) {
	rec := subjectRecord("HC_solo.set", "avg", []int{4}, seq(4))
	vars := map[string]container.Value{"ERP_data": rec}

	ex := &Extractor{Kind: Erp}
	samples, labels, err := ex.Extract(vars, "test.eeg")
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Equal(t, []int{0, 0, 0}, labels.SubjectIDs)
}
