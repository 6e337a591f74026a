package container

// Wire-level constants shared by both encodings.
const (
	denseMagic = "EEGD"
	refMagic   = "EEGR"

	formatVersion uint16 = 1

	tagArray     byte = 0
	tagChars     byte = 1
	tagRecord    byte = 2
	tagRefColumn byte = 3 // reference encoding only
	tagRecordArr byte = 3 // dense encoding only
	tagNull      byte = 4 // reference encoding only: an absent struct-array field

	// Sanity bounds for corrupt-input rejection.
	maxRank     = 8
	maxName     = 1 << 10
	maxElements = 1 << 30
)

// Encoding identifies the physical layout of a container file.
type Encoding int

const (
	EncodingDense Encoding = iota
	EncodingReference
)

func (e Encoding) String() string {
	switch e {
	case EncodingDense:
		return "dense"
	case EncodingReference:
		return "reference"
	default:
		return "unknown"
	}
}
