package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// OpenDense reads a dense-encoded container file and returns its
// top-level variables. If the file carries the reference-based layout it
// returns an error wrapping ErrUnsupportedEncoding so the caller can
// fail over to OpenReference.
func OpenDense(path string) (map[string]Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	dr := &denseReader{path: path, r: bufio.NewReader(f), size: info.Size()}

	var magic [4]byte
	if _, err := io.ReadFull(dr.r, magic[:]); err != nil {
		return nil, &FormatError{Path: path, Reason: "file too short for header"}
	}
	switch string(magic[:]) {
	case denseMagic:
	case refMagic:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedEncoding)
	default:
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unrecognized magic %q", magic)}
	}

	version, err := dr.readU16()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	count, err := dr.readU32()
	if err != nil {
		return nil, err
	}

	vars := make(map[string]Value, count)
	for i := uint32(0); i < count; i++ {
		name, err := dr.readName()
		if err != nil {
			return nil, err
		}
		v, err := dr.readValue(0)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

type denseReader struct {
	path string
	r    *bufio.Reader
	size int64
}

func (dr *denseReader) fail(reason string) error {
	return &FormatError{Path: dr.path, Reason: reason}
}

func (dr *denseReader) readU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(dr.r, buf[:]); err != nil {
		return 0, dr.fail("truncated file")
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (dr *denseReader) readU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(dr.r, buf[:]); err != nil {
		return 0, dr.fail("truncated file")
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (dr *denseReader) readByte() (byte, error) {
	b, err := dr.r.ReadByte()
	if err != nil {
		return 0, dr.fail("truncated file")
	}
	return b, nil
}

func (dr *denseReader) readName() (string, error) {
	n, err := dr.readU16()
	if err != nil {
		return "", err
	}
	if n > maxName {
		return "", dr.fail(fmt.Sprintf("name length %d exceeds limit", n))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(dr.r, buf); err != nil {
		return "", dr.fail("truncated name")
	}
	return string(buf), nil
}

// readValue decodes one tagged value. depth guards record nesting; the
// formats this reader supports never nest past a handful of levels.
func (dr *denseReader) readValue(depth int) (Value, error) {
	if depth > maxRank {
		return nil, dr.fail("record nesting too deep")
	}
	tag, err := dr.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagArray:
		return dr.readArray()
	case tagChars:
		return dr.readChars()
	case tagRecord:
		return dr.readRecord(depth)
	case tagRecordArr:
		return dr.readRecordArray(depth)
	default:
		return nil, dr.fail(fmt.Sprintf("unknown value tag %d", tag))
	}
}

func (dr *denseReader) readArray() (*Array, error) {
	rank, err := dr.readByte()
	if err != nil {
		return nil, err
	}
	if rank > maxRank {
		return nil, dr.fail(fmt.Sprintf("array rank %d exceeds limit", rank))
	}
	dims := make([]int, rank)
	n := 1
	for i := range dims {
		d, err := dr.readU32()
		if err != nil {
			return nil, err
		}
		dd := int(d)
		// Guard before multiplying: overflowing n would wrap negative
		// and slip past the element limit.
		if dd > maxElements || (dd > 0 && n > maxElements/dd) {
			return nil, dr.fail("array dimensions overflow the element limit")
		}
		dims[i] = dd
		n *= dd
	}
	if int64(n)*8 > dr.size {
		return nil, dr.fail(fmt.Sprintf("array of %d elements exceeds the file size", n))
	}
	complexFlag, err := dr.readByte()
	if err != nil {
		return nil, err
	}

	arr := &Array{Dims: dims, Real: make([]float64, n)}
	if err := binary.Read(dr.r, binary.LittleEndian, arr.Real); err != nil {
		return nil, dr.fail("truncated array payload")
	}
	if complexFlag != 0 {
		arr.Imag = make([]float64, n)
		if err := binary.Read(dr.r, binary.LittleEndian, arr.Imag); err != nil {
			return nil, dr.fail("truncated imaginary payload")
		}
	}
	return arr, nil
}

func (dr *denseReader) readChars() (Chars, error) {
	n, err := dr.readU32()
	if err != nil {
		return "", err
	}
	if int64(n) > dr.size {
		return "", dr.fail("character payload exceeds the file size")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(dr.r, buf); err != nil {
		return "", dr.fail("truncated character payload")
	}
	return Chars(buf), nil
}

func (dr *denseReader) readRecord(depth int) (*Record, error) {
	count, err := dr.readU16()
	if err != nil {
		return nil, err
	}
	rec := NewRecord()
	for i := uint16(0); i < count; i++ {
		name, err := dr.readName()
		if err != nil {
			return nil, err
		}
		v, err := dr.readValue(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		rec.Set(name, v)
	}
	return rec, nil
}

func (dr *denseReader) readRecordArray(depth int) (*RecordArray, error) {
	count, err := dr.readU32()
	if err != nil {
		return nil, err
	}
	if count > maxElements {
		return nil, dr.fail("record array length exceeds limit")
	}
	ra := &RecordArray{Records: make([]RecordAccessor, 0, count)}
	for i := uint32(0); i < count; i++ {
		tag, err := dr.readByte()
		if err != nil {
			return nil, err
		}
		if tag != tagRecord {
			return nil, dr.fail(fmt.Sprintf("record array element %d has tag %d", i, tag))
		}
		rec, err := dr.readRecord(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ra.Records = append(ra.Records, rec)
	}
	return ra, nil
}
