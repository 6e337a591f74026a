package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// WriteDense writes vars to path in the dense encoding. Variables are
// written in sorted name order so output is deterministic.
func WriteDense(path string, vars map[string]Value) error {
	var buf bytes.Buffer
	buf.WriteString(denseMagic)
	putU16(&buf, formatVersion)
	putU32(&buf, uint32(len(vars)))

	for _, name := range sortedKeys(vars) {
		if err := putName(&buf, name); err != nil {
			return err
		}
		if err := writeDenseValue(&buf, vars[name]); err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeDenseValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case *Array:
		buf.WriteByte(tagArray)
		return writeArrayPayload(buf, val)
	case Chars:
		buf.WriteByte(tagChars)
		putU32(buf, uint32(len(val)))
		buf.WriteString(string(val))
		return nil
	case *RecordArray:
		buf.WriteByte(tagRecordArr)
		putU32(buf, uint32(len(val.Records)))
		for i, rec := range val.Records {
			if err := writeDenseRecord(buf, rec); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	case RecordAccessor:
		return writeDenseRecord(buf, val)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func writeDenseRecord(buf *bytes.Buffer, rec RecordAccessor) error {
	keys := rec.Keys()
	buf.WriteByte(tagRecord)
	putU16(buf, uint16(len(keys)))
	for _, name := range keys {
		if err := putName(buf, name); err != nil {
			return err
		}
		v, _ := rec.Field(name)
		if err := writeDenseValue(buf, v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// WriteReference writes vars to path in the reference-based encoding.
// Nodes are laid out depth-first; struct arrays are stored column-wise
// behind reference columns, matching what the resolver reconstructs.
// Identical values (by identity) are written once and shared by handle.
func WriteReference(path string, vars map[string]Value) error {
	w := &refWriter{seen: make(map[Value]uint64)}
	w.buf.WriteString(refMagic)
	putU16(&w.buf, formatVersion)
	putU64(&w.buf, 0) // root handle, backpatched below

	rootEntries := make([]groupEntry, 0, len(vars))
	for _, name := range sortedKeys(vars) {
		h, err := w.writeNode(vars[name])
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		rootEntries = append(rootEntries, groupEntry{name: name, handle: h})
	}
	rootHandle, err := w.writeGroup(rootEntries)
	if err != nil {
		return err
	}

	out := w.buf.Bytes()
	binary.LittleEndian.PutUint64(out[6:14], rootHandle)
	return os.WriteFile(path, out, 0644)
}

type refWriter struct {
	buf  bytes.Buffer
	seen map[Value]uint64
	null uint64
}

func (w *refWriter) offset() uint64 { return uint64(w.buf.Len()) }

// writeNull lazily emits the shared null node. Offset zero is inside
// the header, so it doubles as the not-yet-written sentinel.
func (w *refWriter) writeNull() uint64 {
	if w.null == 0 {
		w.null = w.offset()
		w.buf.WriteByte(tagNull)
	}
	return w.null
}

func (w *refWriter) writeNode(v Value) (uint64, error) {
	if h, ok := w.seen[v]; ok {
		return h, nil
	}
	var h uint64
	var err error
	switch val := v.(type) {
	case *Array:
		h = w.offset()
		w.buf.WriteByte(tagArray)
		err = writeArrayPayload(&w.buf, val)
	case Chars:
		h = w.offset()
		w.buf.WriteByte(tagChars)
		putU32(&w.buf, uint32(len(val)))
		w.buf.WriteString(string(val))
	case *RecordArray:
		h, err = w.writeStructArray(val)
	case RecordAccessor:
		h, err = w.writeRecord(val)
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if err != nil {
		return 0, err
	}
	w.seen[v] = h
	return h, nil
}

// writeRecord writes a record's children first, then the group node.
func (w *refWriter) writeRecord(rec RecordAccessor) (uint64, error) {
	keys := rec.Keys()
	entries := make([]groupEntry, 0, len(keys))
	for _, name := range keys {
		v, _ := rec.Field(name)
		h, err := w.writeNode(v)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", name, err)
		}
		entries = append(entries, groupEntry{name: name, handle: h})
	}
	return w.writeGroup(entries)
}

// writeStructArray stores a record array column-wise: for every field
// name, one reference column with the handles of that field across all
// records. Records missing a field contribute a null node, which the
// resolver drops, so absence round-trips as absence.
func (w *refWriter) writeStructArray(ra *RecordArray) (uint64, error) {
	var names []string
	seen := make(map[string]bool)
	for _, rec := range ra.Records {
		for _, name := range rec.Keys() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	entries := make([]groupEntry, 0, len(names))
	for _, name := range names {
		handles := make([]uint64, len(ra.Records))
		for i, rec := range ra.Records {
			v, ok := rec.Field(name)
			if !ok {
				handles[i] = w.writeNull()
				continue
			}
			h, err := w.writeNode(v)
			if err != nil {
				return 0, fmt.Errorf("record %d field %q: %w", i, name, err)
			}
			handles[i] = h
		}
		colHandle := w.offset()
		w.buf.WriteByte(tagRefColumn)
		w.buf.WriteByte(2)
		putU32(&w.buf, uint32(len(handles)))
		putU32(&w.buf, 1)
		for _, h := range handles {
			putU64(&w.buf, h)
		}
		entries = append(entries, groupEntry{name: name, handle: colHandle})
	}
	return w.writeGroup(entries)
}

func (w *refWriter) writeGroup(entries []groupEntry) (uint64, error) {
	h := w.offset()
	w.buf.WriteByte(tagRecord)
	putU16(&w.buf, uint16(len(entries)))
	for _, e := range entries {
		if err := putName(&w.buf, e.name); err != nil {
			return 0, err
		}
		putU64(&w.buf, e.handle)
	}
	return h, nil
}

func writeArrayPayload(buf *bytes.Buffer, a *Array) error {
	if len(a.Dims) > maxRank {
		return fmt.Errorf("array rank %d exceeds limit", len(a.Dims))
	}
	n := a.Len()
	if len(a.Real) != n {
		return fmt.Errorf("array has %d values but dims %v imply %d", len(a.Real), a.Dims, n)
	}
	if a.IsComplex() && len(a.Imag) != n {
		return fmt.Errorf("imaginary part has %d values but dims %v imply %d", len(a.Imag), a.Dims, n)
	}
	buf.WriteByte(byte(len(a.Dims)))
	for _, d := range a.Dims {
		putU32(buf, uint32(d))
	}
	if a.IsComplex() {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	for _, f := range a.Real {
		putU64(buf, math.Float64bits(f))
	}
	for _, f := range a.Imag {
		putU64(buf, math.Float64bits(f))
	}
	return nil
}

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putName(buf *bytes.Buffer, name string) error {
	if len(name) > maxName {
		return fmt.Errorf("name %q exceeds length limit", name)
	}
	putU16(buf, uint16(len(name)))
	buf.WriteString(name)
	return nil
}

func sortedKeys(vars map[string]Value) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
