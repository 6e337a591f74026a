package dataset

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cortexkit/eeg-bridge/container"
	"github.com/cortexkit/eeg-bridge/tensor"
)

// EmptyDatasetError is returned when a full extraction pass yields zero
// samples. Per-sample problems are logged and skipped; only a totally
// empty result is fatal.
type EmptyDatasetError struct {
	Path      string
	Kind      AnalysisKind
	Attempted int
	Skipped   int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no usable %s samples in %s (%d attempted, %d skipped)",
		e.Kind, e.Path, e.Attempted, e.Skipped)
}

// Extractor walks a loaded container's subject records and emits one
// sample per (subject, condition) pair together with aligned labels.
type Extractor struct {
	Kind AnalysisKind
	Arch TargetArchitecture

	// Groups optionally names each subject's cohort, aligned with the
	// record array. When absent the group is derived from the leading
	// token of the subject's dataset name.
	Groups []string

	// ExtraGroups extends the built-in group-name table.
	ExtraGroups map[string]int

	// Log receives one entry per skipped sample. Nil means no logging.
	Log *zap.Logger
}

// Extract iterates subjects in record order and the three conditions in
// their fixed order. Problems with a single (subject, condition) pair
// are logged and skipped without aborting the loop; the sample and all
// four label sequences stay aligned throughout.
func (e *Extractor) Extract(vars map[string]container.Value, path string) ([]*tensor.Tensor, *LabelSet, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	mapping, err := Mapping(e.Kind)
	if err != nil {
		return nil, nil, err
	}

	records, err := findRecords(vars, mapping.RecordKeys)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	var samples []*tensor.Tensor
	labels := &LabelSet{}
	attempted, skipped := 0, 0

	for si, rec := range records {
		name := e.datasetName(rec, si)
		group := e.groupFor(si, name)
		if group == GroupUnmapped {
			log.Warn("subject group not recognized, keeping with sentinel index",
				zap.Int("subject", si), zap.String("dataset", name))
		}

		for ci, cond := range ConditionNames {
			attempted++
			sample, reason, err := e.extractSample(rec, cond, mapping)
			if err != nil {
				return nil, nil, fmt.Errorf("subject %d condition %s: %w", si, cond, err)
			}
			if sample == nil {
				skipped++
				log.Info("skipping sample",
					zap.Int("subject", si),
					zap.String("condition", cond),
					zap.String("reason", reason))
				continue
			}
			samples = append(samples, sample)
			labels.append(ci, group, si, name)
		}
	}

	if len(samples) == 0 {
		return nil, nil, &EmptyDatasetError{Path: path, Kind: e.Kind, Attempted: attempted, Skipped: skipped}
	}
	log.Info("extraction complete",
		zap.String("path", path),
		zap.Stringer("kind", e.Kind),
		zap.Int("samples", len(samples)),
		zap.Int("skipped", skipped))
	return samples, labels, nil
}

// extractSample pulls one condition's numeric payload. A nil sample
// with a non-empty reason means a recoverable skip.
func (e *Extractor) extractSample(rec container.RecordAccessor, cond string, mapping FieldMapping) (*tensor.Tensor, string, error) {
	v, ok := rec.Field(cond)
	if !ok {
		return nil, "condition record absent", nil
	}
	crec, ok := container.AsRecord(v)
	if !ok {
		return nil, "condition value is not a record", nil
	}

	arr := numericField(crec, mapping.Primary)
	if arr == nil {
		// Fall back to averaging raw trials over their leading axis,
		// in the complex domain when the trials are complex.
		trials := numericField(crec, mapping.Trials)
		if trials == nil {
			return nil, fmt.Sprintf("fields %q and %q both missing or empty", mapping.Primary, mapping.Trials), nil
		}
		arr = meanLeadingAxis(trials)
	}

	t, err := toTensor(arr)
	if err != nil {
		return nil, "", err
	}
	t = t.Squeeze()

	// Per-kind reductions. The spectral rule averages the leading axis
	// of rank-3/4 samples without consulting the record's dimord string.
	switch {
	case e.Kind == Spectral && (t.Rank() == 3 || t.Rank() == 4):
		t, err = t.Mean(0)
	case e.Kind == Connectivity && e.Arch == Riemannian && t.Rank() == 4:
		t, err = t.Mean(t.Rank() - 1)
		if err == nil {
			t, err = t.Mean(t.Rank() - 1)
		}
	}
	if err != nil {
		return nil, "", err
	}

	scrub(t)
	if t.NumElems == 0 {
		return nil, "sample empty after reduction", nil
	}
	return t, "", nil
}

// numericField returns the named field as a non-empty numeric array, or
// nil when it is missing, non-numeric, or empty.
func numericField(rec container.RecordAccessor, name string) *container.Array {
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	arr, ok := v.(*container.Array)
	if !ok || arr.Len() == 0 {
		return nil
	}
	return arr
}

// meanLeadingAxis averages an array over its leading axis, keeping
// complex values complex so magnitude is taken afterwards.
func meanLeadingAxis(a *container.Array) *container.Array {
	if len(a.Dims) < 2 {
		// A single trial vector averages to one value.
		out := &container.Array{Dims: []int{1}, Real: []float64{mean(a.Real)}}
		if a.IsComplex() {
			out.Imag = []float64{mean(a.Imag)}
		}
		return out
	}

	n := a.Dims[0]
	rest := a.Len() / n
	out := &container.Array{
		Dims: append([]int{}, a.Dims[1:]...),
		Real: make([]float64, rest),
	}
	if a.IsComplex() {
		out.Imag = make([]float64, rest)
	}
	inv := 1.0 / float64(n)
	for k := 0; k < n; k++ {
		base := k * rest
		for i := 0; i < rest; i++ {
			out.Real[i] += a.Real[base+i] * inv
			if a.IsComplex() {
				out.Imag[i] += a.Imag[base+i] * inv
			}
		}
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// toTensor reduces complex values to magnitude and casts to float32.
func toTensor(a *container.Array) (*tensor.Tensor, error) {
	data := make([]float32, a.Len())
	if a.IsComplex() {
		for i := range data {
			data[i] = float32(math.Hypot(a.Real[i], a.Imag[i]))
		}
	} else {
		for i := range data {
			data[i] = float32(a.Real[i])
		}
	}
	return tensor.New(a.Dims, data)
}

// scrub replaces NaN and Inf with zero in place.
func scrub(t *tensor.Tensor) {
	for i, v := range t.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Data[i] = 0
		}
	}
}

// findRecords locates the subject records under the first matching
// variable name. A single record is treated as a one-subject array.
func findRecords(vars map[string]container.Value, keys []string) ([]container.RecordAccessor, error) {
	for _, key := range keys {
		v, ok := vars[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case *container.RecordArray:
			return val.Records, nil
		case container.RecordAccessor:
			return []container.RecordAccessor{val}, nil
		}
	}
	return nil, fmt.Errorf("no record variable found (tried %v)", keys)
}

// datasetName recovers the subject's dataset name from the record's own
// dataset field or its cfg subtree, falling back to a positional name.
func (e *Extractor) datasetName(rec container.RecordAccessor, subject int) string {
	if name, ok := charsField(rec, "dataset"); ok {
		return cleanDatasetName(name)
	}
	if v, ok := rec.Field("cfg"); ok {
		if cfg, ok := container.AsRecord(v); ok {
			if name, ok := charsField(cfg, "dataset"); ok {
				return cleanDatasetName(name)
			}
		}
	}
	return fmt.Sprintf("subject_%02d", subject)
}

func charsField(rec container.RecordAccessor, name string) (string, bool) {
	v, ok := rec.Field(name)
	if !ok {
		return "", false
	}
	c, ok := v.(container.Chars)
	if !ok || len(c) == 0 {
		return "", false
	}
	return string(c), true
}

// cleanDatasetName strips directories and the file extension, after
// normalizing Windows-style separators.
func cleanDatasetName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := name[strings.LastIndex(name, "/")+1:]
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// groupFor resolves a subject's group index from the explicit group
// list when provided, otherwise from the dataset name's leading token.
func (e *Extractor) groupFor(subject int, datasetName string) int {
	var name string
	if subject < len(e.Groups) {
		name = e.Groups[subject]
	} else {
		name = datasetName
		if i := strings.Index(name, "_"); i > 0 {
			name = name[:i]
		}
	}
	if idx, ok := e.ExtraGroups[name]; ok {
		return idx
	}
	return GroupIndex(name)
}
