// Package bridge wires the container readers, the sample extractor,
// and the shape machinery into one Load call, and owns the
// per-architecture tensor layout rules.
package bridge

import (
	"github.com/cortexkit/eeg-bridge/dataset"
	"github.com/cortexkit/eeg-bridge/tensor"
)

// adapterKey pairs an analysis kind with a target architecture.
type adapterKey struct {
	Kind dataset.AnalysisKind
	Arch dataset.TargetArchitecture
}

// adapterRules is the full layout table. Each rule is a pure transform
// of the stacked batch; pairs not listed here pass through unchanged.
var adapterRules = map[adapterKey]func(*tensor.Tensor) (*tensor.Tensor, error){
	// ERP batches are (N, channels, time); EEGNet wants a singleton
	// depth axis: (N, 1, channels, time).
	{dataset.Erp, dataset.EEGNet}: func(t *tensor.Tensor) (*tensor.Tensor, error) {
		if t.Rank() != 3 {
			return t, nil
		}
		return t.Reshape([]int{t.Shape[0], 1, t.Shape[1], t.Shape[2]})
	},
	// EEG-Inception takes time-major input: (N, time, channels).
	{dataset.Erp, dataset.EEGInception}: func(t *tensor.Tensor) (*tensor.Tensor, error) {
		if t.Rank() != 3 {
			return t, nil
		}
		return t.Transpose([]int{0, 2, 1})
	},
	// Time-frequency batches (N, channels, freq, time) feed
	// EEG-Inception as-is.
	{dataset.TimeFrequency, dataset.EEGInception}: identity,
	// Riemannian pipelines consume (N, channels, freq) spectra and
	// (N, channels, channels) connectivity matrices directly.
	{dataset.Spectral, dataset.Riemannian}:     identity,
	{dataset.Connectivity, dataset.Riemannian}: identity,
}

func identity(t *tensor.Tensor) (*tensor.Tensor, error) { return t, nil }

// Adapt applies the (kind, architecture) layout rule to a stacked batch
// tensor. It is total over the enum pairs: undefined pairs return the
// tensor unchanged.
func Adapt(t *tensor.Tensor, kind dataset.AnalysisKind, arch dataset.TargetArchitecture) (*tensor.Tensor, error) {
	if rule, ok := adapterRules[adapterKey{Kind: kind, Arch: arch}]; ok {
		return rule(t)
	}
	return t, nil
}
