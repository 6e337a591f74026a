package bridge

import (
	"go.uber.org/zap"

	"github.com/cortexkit/eeg-bridge/container"
	"github.com/cortexkit/eeg-bridge/dataset"
	"github.com/cortexkit/eeg-bridge/tensor"
)

// Result is the output of one Load call: the adapted batch tensor and
// everything needed to train against it.
type Result struct {
	// Tensor is the stacked, padded, architecture-adapted batch; its
	// leading dimension is the retained sample count.
	Tensor *tensor.Tensor
	// Labels holds the four parallel label sequences for the retained
	// samples.
	Labels *dataset.LabelSet
	// Classes are the contiguous per-sample class targets in [0, NumClasses).
	Classes []int
	// Remap is the old combined-label to contiguous-class table.
	Remap map[int]int
	// NumClasses is the number of distinct classes present.
	NumClasses int
	// KeptIndices are the pre-filter positions of the retained samples;
	// nil when no class filter was applied.
	KeptIndices []int
	// Encoding reports which physical encoding the file used.
	Encoding container.Encoding
}

// Loader performs one-file, end-to-end loads. A Loader is cheap and
// carries no cross-call state: every Load re-opens and re-parses its
// file. Loads are synchronous and CPU/IO bound; callers with an
// interactive front end should run them off the UI goroutine.
type Loader struct {
	log         *zap.Logger
	classFilter []string
	groups      []string
	extraGroups map[string]int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for skip and progress messages.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithClassFilter keeps only samples matching the "GROUP_condition"
// specs, e.g. "PD_target".
func WithClassFilter(specs []string) Option {
	return func(l *Loader) { l.classFilter = specs }
}

// WithGroups names each subject's cohort explicitly, aligned with the
// container's record order.
func WithGroups(groups []string) Option {
	return func(l *Loader) { l.groups = groups }
}

// WithGroupSynonyms extends the group-name table, usually from
// Config.Groups.
func WithGroupSynonyms(synonyms map[string]int) Option {
	return func(l *Loader) { l.extraGroups = synonyms }
}

// NewLoader returns a Loader with the given options applied.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads one container file end-to-end: detect the encoding,
// extract samples and labels, optionally filter by class, stack into a
// batch tensor, apply the architecture layout, and remap the combined
// labels onto a contiguous range.
func (l *Loader) Load(path string, kind dataset.AnalysisKind, arch dataset.TargetArchitecture) (*Result, error) {
	vars, encoding, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	l.log.Info("container opened",
		zap.String("path", path),
		zap.Stringer("encoding", encoding),
		zap.Int("variables", len(vars)))

	ex := &dataset.Extractor{
		Kind:        kind,
		Arch:        arch,
		Groups:      l.groups,
		ExtraGroups: l.extraGroups,
		Log:         l.log,
	}
	samples, labels, err := ex.Extract(vars, path)
	if err != nil {
		return nil, err
	}

	var kept []int
	if len(l.classFilter) > 0 {
		samples, labels, kept, err = dataset.FilterByClass(samples, labels, l.classFilter)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			return nil, &dataset.EmptyDatasetError{Path: path, Kind: kind}
		}
		l.log.Info("class filter applied",
			zap.Strings("filter", l.classFilter),
			zap.Int("kept", len(samples)))
	}

	batch, err := tensor.Stack(samples)
	if err != nil {
		return nil, err
	}
	batch, err = Adapt(batch, kind, arch)
	if err != nil {
		return nil, err
	}

	classes, remap, numClasses := labels.RemapContiguous()
	l.log.Info("load complete",
		zap.String("path", path),
		zap.Stringer("kind", kind),
		zap.Stringer("architecture", arch),
		zap.Ints("batch_shape", batch.Shape),
		zap.Int("classes", numClasses))

	return &Result{
		Tensor:      batch,
		Labels:      labels,
		Classes:     classes,
		Remap:       remap,
		NumClasses:  numClasses,
		KeptIndices: kept,
		Encoding:    encoding,
	}, nil
}
