package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// conditionFields is the allowlist applied when a reference handle
// resolves to a nested group. Only these child names are dereferenced;
// anything else (configuration trees, hardware geometry) is skipped
// outright, which bounds the reference walk to two levels no matter how
// deep the underlying metadata actually is.
var conditionFields = map[string]bool{
	"avg":           true,
	"powspctrm":     true,
	"fourierspctrm": true,
	"cohspctrm":     true,
	"itpc":          true,
	"dimord":        true,
	"time":          true,
	"freq":          true,
	"label":         true,
	"trial":         true,
	"dataset":       true,
}

// maxResolveDepth bounds recursion through nested groups. Well-formed
// files never need more than record -> condition -> field.
const maxResolveDepth = 2

// OpenReference reads a reference-encoded container file. The file
// handle is scoped to this call: it is passed explicitly into the
// resolver and closed on every exit path, including a failure partway
// through reconstruction.
func OpenReference(path string) (map[string]Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return readReference(f, info.Size(), path)
}

func readReference(r io.ReaderAt, size int64, path string) (map[string]Value, error) {
	var header [14]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, &FormatError{Path: path, Reason: "file too short for header"}
	}
	if string(header[:4]) != refMagic {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unrecognized magic %q", header[:4])}
	}
	if v := binary.LittleEndian.Uint16(header[4:6]); v != formatVersion {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unsupported version %d", v)}
	}
	rootHandle := binary.LittleEndian.Uint64(header[6:14])

	res := &resolver{
		r:         r,
		size:      size,
		path:      path,
		arena:     make(map[uint64]Value),
		resolving: make(map[uint64]bool),
	}

	root, err := res.readGroup(rootHandle)
	if err != nil {
		return nil, fmt.Errorf("root group: %w", err)
	}

	vars := make(map[string]Value, len(root.names))
	for _, entry := range root.names {
		v, err := res.resolveTopLevel(entry.handle)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", entry.name, err)
		}
		if v != nil {
			vars[entry.name] = v
		}
	}
	return vars, nil
}

// resolver dereferences handles into values. The arena memoizes by
// handle identity so a node referenced twice resolves once; resolving
// tracks in-progress handles and breaks reference cycles. Only concrete
// values enter the arena: a group skipped at the depth bound may still
// resolve when a later reference reaches it at a shallower depth.
type resolver struct {
	r         io.ReaderAt
	size      int64
	path      string
	arena     map[uint64]Value
	resolving map[uint64]bool
}

// groupEntry is one named child of a group node.
type groupEntry struct {
	name   string
	handle uint64
}

type groupNode struct {
	names []groupEntry
}

// resolveTopLevel handles a top-level variable: concrete datasets pass
// through, groups become either a struct array (when stored column-wise
// behind reference columns) or a single record.
func (res *resolver) resolveTopLevel(h uint64) (Value, error) {
	tag, err := res.readTag(h)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagArray:
		return res.resolve(h, 0)
	case tagChars:
		return res.resolve(h, 0)
	case tagRefColumn:
		return res.resolve(h, 0)
	case tagRecord:
		g, err := res.readGroup(h)
		if err != nil {
			return nil, err
		}
		if ra, ok, err := res.reconstructStructArray(g); err != nil {
			return nil, err
		} else if ok {
			return ra, nil
		}
		return res.buildRecord(g, 1)
	default:
		return nil, res.fail(h, fmt.Sprintf("unknown node tag %d", tag))
	}
}

// reconstructStructArray rebuilds a record array from a group stored
// column-wise: every field is a reference column of the array length.
// The group is a struct array when its first field's backing node is a
// reference column with a 1xN or Nx1 shape.
func (res *resolver) reconstructStructArray(g *groupNode) (*RecordArray, bool, error) {
	if len(g.names) == 0 {
		return nil, false, nil
	}
	first, err := res.readNode(g.names[0].handle)
	if err != nil {
		return nil, false, err
	}
	firstCol, ok := first.(*refColumn)
	if !ok || !isVec(firstCol.dims) {
		return nil, false, nil
	}
	length := len(firstCol.handles)

	type column struct {
		name    string
		handles []uint64
	}
	cols := make([]column, 0, len(g.names))
	for _, entry := range g.names {
		node, err := res.readNode(entry.handle)
		if err != nil {
			return nil, false, err
		}
		col, ok := node.(*refColumn)
		if !ok || !isVec(col.dims) {
			// Mixed layouts do not form a struct array.
			return nil, false, nil
		}
		if len(col.handles) != length {
			return nil, false, res.fail(entry.handle,
				fmt.Sprintf("column %q has %d elements, expected %d", entry.name, len(col.handles), length))
		}
		cols = append(cols, column{name: entry.name, handles: col.handles})
	}

	ra := &RecordArray{Records: make([]RecordAccessor, 0, length)}
	for i := 0; i < length; i++ {
		rec := &resolvedRecord{fields: make(map[string]Value)}
		for _, col := range cols {
			v, err := res.resolve(col.handles[i], 1)
			if err != nil {
				return nil, false, fmt.Errorf("record %d field %q: %w", i, col.name, err)
			}
			if v != nil {
				rec.set(col.name, v)
			}
		}
		ra.Records = append(ra.Records, rec)
	}
	return ra, true, nil
}

// buildRecord resolves a plain group's fields into a record.
func (res *resolver) buildRecord(g *groupNode, depth int) (*resolvedRecord, error) {
	rec := &resolvedRecord{fields: make(map[string]Value)}
	for _, entry := range g.names {
		v, err := res.resolve(entry.handle, depth)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", entry.name, err)
		}
		if v != nil {
			rec.set(entry.name, v)
		}
	}
	return rec, nil
}

// resolve dereferences one handle. Concrete datasets are returned
// as-is; single-element reference columns unwrap transparently; groups
// recurse into condition-record construction under the allowlist. A
// group with no allowlisted fields yields no value (nil, nil).
func (res *resolver) resolve(h uint64, depth int) (Value, error) {
	if v, ok := res.arena[h]; ok {
		return v, nil
	}
	if res.resolving[h] {
		return nil, nil
	}
	res.resolving[h] = true
	v, err := res.resolveUncached(h, depth)
	delete(res.resolving, h)
	if err != nil {
		return nil, err
	}
	if v != nil {
		res.arena[h] = v
	}
	return v, nil
}

func (res *resolver) resolveUncached(h uint64, depth int) (Value, error) {
	node, err := res.readNode(h)
	if err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case nullNode:
		return nil, nil
	case *Array:
		return n, nil
	case Chars:
		return n, nil
	case *refColumn:
		if len(n.handles) == 1 {
			return res.resolve(n.handles[0], depth)
		}
		return res.stackColumn(n, depth)
	case *groupNode:
		if depth >= maxResolveDepth {
			return nil, nil
		}
		rec := &resolvedRecord{fields: make(map[string]Value)}
		for _, entry := range n.names {
			if !conditionFields[entry.name] {
				continue
			}
			v, err := res.resolve(entry.handle, depth+1)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", entry.name, err)
			}
			if v != nil {
				rec.set(entry.name, v)
			}
		}
		if len(rec.names) == 0 {
			return nil, nil
		}
		return rec, nil
	default:
		return nil, res.fail(h, "unknown node type")
	}
}

// stackColumn resolves every element of a multi-element reference column
// and, when all elements are numeric arrays of one shape, stacks them
// along a new leading axis (raw trials are stored this way). Columns
// holding anything else yield no value.
func (res *resolver) stackColumn(col *refColumn, depth int) (Value, error) {
	arrays := make([]*Array, 0, len(col.handles))
	for _, h := range col.handles {
		v, err := res.resolve(h, depth)
		if err != nil {
			return nil, err
		}
		arr, ok := v.(*Array)
		if !ok {
			return nil, nil
		}
		if len(arrays) > 0 && !sameDims(arrays[0].Dims, arr.Dims) {
			return nil, nil
		}
		arrays = append(arrays, arr)
	}
	if len(arrays) == 0 {
		return nil, nil
	}

	per := arrays[0].Len()
	out := &Array{
		Dims: append([]int{len(arrays)}, arrays[0].Dims...),
		Real: make([]float64, per*len(arrays)),
	}
	complexAny := false
	for _, a := range arrays {
		if a.IsComplex() {
			complexAny = true
			break
		}
	}
	if complexAny {
		out.Imag = make([]float64, per*len(arrays))
	}
	for i, a := range arrays {
		copy(out.Real[i*per:], a.Real)
		if a.IsComplex() {
			copy(out.Imag[i*per:], a.Imag)
		}
	}
	return out, nil
}

// refColumn is a node holding an array of handles with a 1xN or Nx1
// shape; it is the column storage behind struct arrays.
type refColumn struct {
	dims    []int
	handles []uint64
}

// readTag reads a node's type byte without decoding its payload.
func (res *resolver) readTag(h uint64) (byte, error) {
	var b [1]byte
	if _, err := res.r.ReadAt(b[:], int64(h)); err != nil {
		return 0, res.fail(h, "truncated node")
	}
	return b[0], nil
}

// nullNode marks a struct-array slot whose record never had the field.
type nullNode struct{}

// readNode decodes the node stored at handle h. Nodes decode to *Array,
// Chars, *groupNode, *refColumn, or nullNode.
func (res *resolver) readNode(h uint64) (interface{}, error) {
	sr := bufio.NewReader(io.NewSectionReader(res.r, int64(h), 1<<62))
	tag, err := sr.ReadByte()
	if err != nil {
		return nil, res.fail(h, "truncated node")
	}
	nr := &nodeReader{res: res, h: h, r: sr}
	switch tag {
	case tagArray:
		return nr.readArray()
	case tagChars:
		return nr.readChars()
	case tagRecord:
		return nr.readGroup()
	case tagRefColumn:
		return nr.readRefColumn()
	case tagNull:
		return nullNode{}, nil
	default:
		return nil, res.fail(h, fmt.Sprintf("unknown node tag %d", tag))
	}
}

func (res *resolver) readGroup(h uint64) (*groupNode, error) {
	node, err := res.readNode(h)
	if err != nil {
		return nil, err
	}
	g, ok := node.(*groupNode)
	if !ok {
		return nil, res.fail(h, "expected a group node")
	}
	return g, nil
}

func (res *resolver) fail(h uint64, reason string) error {
	return &FormatError{Path: res.path, Offset: int64(h), Reason: reason}
}

// nodeReader decodes one node's payload sequentially.
type nodeReader struct {
	res *resolver
	h   uint64
	r   *bufio.Reader
}

func (nr *nodeReader) fail(reason string) error {
	return nr.res.fail(nr.h, reason)
}

func (nr *nodeReader) readU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(nr.r, buf[:]); err != nil {
		return 0, nr.fail("truncated node")
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (nr *nodeReader) readU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(nr.r, buf[:]); err != nil {
		return 0, nr.fail("truncated node")
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (nr *nodeReader) readU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(nr.r, buf[:]); err != nil {
		return 0, nr.fail("truncated node")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (nr *nodeReader) readByte() (byte, error) {
	b, err := nr.r.ReadByte()
	if err != nil {
		return 0, nr.fail("truncated node")
	}
	return b, nil
}

func (nr *nodeReader) readName() (string, error) {
	n, err := nr.readU16()
	if err != nil {
		return "", err
	}
	if n > maxName {
		return "", nr.fail(fmt.Sprintf("name length %d exceeds limit", n))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(nr.r, buf); err != nil {
		return "", nr.fail("truncated name")
	}
	return string(buf), nil
}

func (nr *nodeReader) readDims() ([]int, int, error) {
	rank, err := nr.readByte()
	if err != nil {
		return nil, 0, err
	}
	if rank > maxRank {
		return nil, 0, nr.fail(fmt.Sprintf("rank %d exceeds limit", rank))
	}
	dims := make([]int, rank)
	n := 1
	for i := range dims {
		d, err := nr.readU32()
		if err != nil {
			return nil, 0, err
		}
		dd := int(d)
		// Guard before multiplying: overflowing n would wrap negative
		// and slip past the element limit.
		if dd > maxElements || (dd > 0 && n > maxElements/dd) {
			return nil, 0, nr.fail("dimensions overflow the element limit")
		}
		dims[i] = dd
		n *= dd
	}
	if int64(n)*8 > nr.res.size {
		return nil, 0, nr.fail(fmt.Sprintf("%d elements exceeds the file size", n))
	}
	return dims, n, nil
}

func (nr *nodeReader) readArray() (*Array, error) {
	dims, n, err := nr.readDims()
	if err != nil {
		return nil, err
	}
	complexFlag, err := nr.readByte()
	if err != nil {
		return nil, err
	}
	arr := &Array{Dims: dims, Real: make([]float64, n)}
	if err := binary.Read(nr.r, binary.LittleEndian, arr.Real); err != nil {
		return nil, nr.fail("truncated array payload")
	}
	if complexFlag != 0 {
		arr.Imag = make([]float64, n)
		if err := binary.Read(nr.r, binary.LittleEndian, arr.Imag); err != nil {
			return nil, nr.fail("truncated imaginary payload")
		}
	}
	return arr, nil
}

func (nr *nodeReader) readChars() (Chars, error) {
	n, err := nr.readU32()
	if err != nil {
		return "", err
	}
	if int64(n) > nr.res.size {
		return "", nr.fail("character payload exceeds the file size")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(nr.r, buf); err != nil {
		return "", nr.fail("truncated character payload")
	}
	return Chars(buf), nil
}

func (nr *nodeReader) readGroup() (*groupNode, error) {
	count, err := nr.readU16()
	if err != nil {
		return nil, err
	}
	g := &groupNode{names: make([]groupEntry, 0, count)}
	for i := uint16(0); i < count; i++ {
		name, err := nr.readName()
		if err != nil {
			return nil, err
		}
		h, err := nr.readU64()
		if err != nil {
			return nil, err
		}
		g.names = append(g.names, groupEntry{name: name, handle: h})
	}
	return g, nil
}

func (nr *nodeReader) readRefColumn() (*refColumn, error) {
	dims, n, err := nr.readDims()
	if err != nil {
		return nil, err
	}
	col := &refColumn{dims: dims, handles: make([]uint64, n)}
	for i := range col.handles {
		h, err := nr.readU64()
		if err != nil {
			return nil, err
		}
		col.handles[i] = h
	}
	return col, nil
}

// resolvedRecord is the reference-side RecordAccessor implementation,
// built from dereferenced handles.
type resolvedRecord struct {
	names  []string
	fields map[string]Value
}

func (r *resolvedRecord) ValueKind() Kind { return KindRecord }

func (r *resolvedRecord) set(name string, v Value) {
	if _, ok := r.fields[name]; !ok {
		r.names = append(r.names, name)
	}
	r.fields[name] = v
}

func (r *resolvedRecord) Field(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *resolvedRecord) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

func (r *resolvedRecord) Keys() []string {
	keys := make([]string, len(r.names))
	copy(keys, r.names)
	return keys
}

// isVec reports whether dims describe a 1xN or Nx1 (or plain N) shape.
func isVec(dims []int) bool {
	switch len(dims) {
	case 1:
		return true
	case 2:
		return dims[0] == 1 || dims[1] == 1
	default:
		return false
	}
}

func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
