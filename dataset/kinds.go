// Package dataset turns loaded container structures into aligned
// sample/label collections for the classification models.
package dataset

import "fmt"

// AnalysisKind selects which analysis output a container holds and
// therefore which record and field names carry the numeric payload.
type AnalysisKind int

const (
	Erp AnalysisKind = iota
	TimeFrequency
	Spectral
	Connectivity
	IntertrialCoherence
)

func (k AnalysisKind) String() string {
	switch k {
	case Erp:
		return "erp"
	case TimeFrequency:
		return "time_frequency"
	case Spectral:
		return "spectral"
	case Connectivity:
		return "connectivity"
	case IntertrialCoherence:
		return "intertrial_coherence"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ParseAnalysisKind parses the snake_case kind name.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	for _, k := range []AnalysisKind{Erp, TimeFrequency, Spectral, Connectivity, IntertrialCoherence} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown analysis kind %q", s)
}

// TargetArchitecture selects the final axis layout of the batch tensor.
type TargetArchitecture int

const (
	EEGNet TargetArchitecture = iota
	EEGInception
	Riemannian
)

func (a TargetArchitecture) String() string {
	switch a {
	case EEGNet:
		return "eeg_net"
	case EEGInception:
		return "eeg_inception"
	case Riemannian:
		return "riemannian"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ParseTargetArchitecture parses the snake_case architecture name.
func ParseTargetArchitecture(s string) (TargetArchitecture, error) {
	for _, a := range []TargetArchitecture{EEGNet, EEGInception, Riemannian} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown target architecture %q", s)
}

// FieldMapping names where one analysis kind stores its payload: the
// top-level record-array variable (candidates tried in order), the
// primary per-condition data field, and the raw-trials fallback field.
type FieldMapping struct {
	RecordKeys []string
	Primary    string
	Trials     string
}

// fieldTable maps each analysis kind to its container field names.
var fieldTable = map[AnalysisKind]FieldMapping{
	Erp:                 {RecordKeys: []string{"ERP_data", "data"}, Primary: "avg", Trials: "trial"},
	TimeFrequency:       {RecordKeys: []string{"timefreq_data", "data"}, Primary: "powspctrm", Trials: "trial"},
	Spectral:            {RecordKeys: []string{"spectral_data", "data"}, Primary: "fourierspctrm", Trials: "trial"},
	Connectivity:        {RecordKeys: []string{"coherence_data", "data"}, Primary: "cohspctrm", Trials: "trial"},
	IntertrialCoherence: {RecordKeys: []string{"itc_data", "data"}, Primary: "itpc", Trials: "trial"},
}

// Mapping returns the field mapping for kind.
func Mapping(kind AnalysisKind) (FieldMapping, error) {
	m, ok := fieldTable[kind]
	if !ok {
		return FieldMapping{}, fmt.Errorf("no field mapping for analysis kind %v", kind)
	}
	return m, nil
}
