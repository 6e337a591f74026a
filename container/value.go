// Package container reads and writes the EEG result container format.
//
// One logical schema has two incompatible physical encodings: a dense
// encoding that stores nested structure inline, and a reference-based
// encoding that stores a node table addressed by opaque handles. Open
// detects which encoding a file uses and returns the same logical view
// for both: a map from top-level variable name to a Value.
package container

// Kind identifies the logical type of a Value.
type Kind int

const (
	KindArray Kind = iota
	KindChars
	KindRecord
	KindRecordArray
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "Array"
	case KindChars:
		return "Chars"
	case KindRecord:
		return "Record"
	case KindRecordArray:
		return "RecordArray"
	default:
		return "Unknown"
	}
}

// Value is one logical value stored in a container: a numeric array,
// character data, a keyed record, or an ordered array of records.
type Value interface {
	ValueKind() Kind
}

// Array is an N-dimensional numeric array in row-major order.
// Imag is nil for real-valued arrays and parallel to Real otherwise.
type Array struct {
	Dims []int
	Real []float64
	Imag []float64
}

func (a *Array) ValueKind() Kind { return KindArray }

// IsComplex reports whether the array carries an imaginary component.
func (a *Array) IsComplex() bool { return a.Imag != nil }

// Len returns the total element count implied by Dims.
func (a *Array) Len() int {
	if len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// Chars holds character data (dataset names, dimension-order strings).
type Chars string

func (c Chars) ValueKind() Kind { return KindChars }

// RecordAccessor is the uniform view over a record regardless of which
// physical encoding it came from. Dense files produce *Record directly;
// the reference reader produces records reconstructed from handles.
// Extraction code depends only on this interface.
type RecordAccessor interface {
	// Field returns the value stored under name, if present.
	Field(name string) (Value, bool)
	// Has reports whether name is present.
	Has(name string) bool
	// Keys returns the field names in their stored order.
	Keys() []string
}

// Record is a keyed bag of values with a stable field order. It is the
// native record representation of the dense encoding and the type used
// to build containers programmatically.
type Record struct {
	names  []string
	fields map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

func (r *Record) ValueKind() Kind { return KindRecord }

// Set stores v under name, preserving first-set order.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.fields[name]; !ok {
		r.names = append(r.names, name)
	}
	r.fields[name] = v
}

func (r *Record) Field(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

func (r *Record) Keys() []string {
	keys := make([]string, len(r.names))
	copy(keys, r.names)
	return keys
}

// RecordArray is an ordered collection of records, one per experimental
// subject. Its length matches the subject count reported by the
// container's shape metadata.
type RecordArray struct {
	Records []RecordAccessor
}

func (ra *RecordArray) ValueKind() Kind { return KindRecordArray }

// Len returns the number of records.
func (ra *RecordArray) Len() int { return len(ra.Records) }

// AsRecord returns v as a RecordAccessor when it is record-shaped.
func AsRecord(v Value) (RecordAccessor, bool) {
	r, ok := v.(RecordAccessor)
	return r, ok
}
