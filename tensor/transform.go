package tensor

import "fmt"

// Reshape returns a tensor sharing the same data with a different
// shape. One dimension may be -1 and is inferred from the rest.
func (t *Tensor) Reshape(newShape []int) (*Tensor, error) {
	newNumElems := 1
	hasNegOne := false
	negOneIdx := -1

	for i, dim := range newShape {
		if dim < 0 {
			if dim != -1 {
				return nil, fmt.Errorf("negative dimension %d at index %d is not allowed (only -1 is allowed)", dim, i)
			}
			if hasNegOne {
				return nil, fmt.Errorf("only one dimension can be -1")
			}
			hasNegOne = true
			negOneIdx = i
		} else if dim == 0 {
			return nil, fmt.Errorf("dimension %d cannot be 0", i)
		} else {
			newNumElems *= dim
		}
	}

	shape := make([]int, len(newShape))
	copy(shape, newShape)

	if hasNegOne {
		if t.NumElems%newNumElems != 0 {
			return nil, fmt.Errorf("cannot reshape tensor of size %d into shape with -1: size must be divisible by %d", t.NumElems, newNumElems)
		}
		inferred := t.NumElems / newNumElems
		shape[negOneIdx] = inferred
		newNumElems *= inferred
	}

	if newNumElems != t.NumElems {
		return nil, fmt.Errorf("cannot reshape tensor of size %d into shape %v (size %d)", t.NumElems, shape, newNumElems)
	}

	return &Tensor{
		Shape:    shape,
		Strides:  calculateStrides(shape),
		Data:     t.Data, // shares the underlying data
		NumElems: t.NumElems,
	}, nil
}

// Transpose returns a materialized copy with axes permuted by perm.
func (t *Tensor) Transpose(perm []int) (*Tensor, error) {
	if len(perm) != len(t.Shape) {
		return nil, fmt.Errorf("permutation length %d does not match rank %d", len(perm), len(t.Shape))
	}
	seen := make([]bool, len(perm))
	newShape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("invalid permutation %v", perm)
		}
		seen[p] = true
		newShape[i] = t.Shape[p]
	}

	out, err := Zeros(newShape)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(t.Shape))
	for flat := 0; flat < t.NumElems; flat++ {
		dst := 0
		for i, p := range perm {
			dst += idx[p] * out.Strides[i]
		}
		out.Data[dst] = t.Data[flat]

		for axis := len(idx) - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < t.Shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}
	return out, nil
}

// Squeeze returns a tensor sharing the same data with all size-1 axes
// removed. A tensor that is all size-1 axes squeezes to shape [1].
func (t *Tensor) Squeeze() *Tensor {
	var shape []int
	for _, dim := range t.Shape {
		if dim != 1 {
			shape = append(shape, dim)
		}
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	return &Tensor{
		Shape:    shape,
		Strides:  calculateStrides(shape),
		Data:     t.Data,
		NumElems: t.NumElems,
	}
}

// Mean reduces one axis by averaging, returning a tensor of rank-1
// lower. Reducing the only axis yields shape [1].
func (t *Tensor) Mean(axis int) (*Tensor, error) {
	if axis < 0 || axis >= len(t.Shape) {
		return nil, fmt.Errorf("axis %d out of range for rank %d", axis, len(t.Shape))
	}
	n := t.Shape[axis]

	outShape := make([]int, 0, len(t.Shape)-1)
	for i, dim := range t.Shape {
		if i != axis {
			outShape = append(outShape, dim)
		}
	}
	if len(outShape) == 0 {
		outShape = []int{1}
	}

	out, err := Zeros(outShape)
	if err != nil {
		return nil, err
	}

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= t.Shape[i]
	}
	inner := 1
	for i := axis + 1; i < len(t.Shape); i++ {
		inner *= t.Shape[i]
	}

	inv := 1.0 / float32(n)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float32
			base := o * n * inner
			for k := 0; k < n; k++ {
				sum += t.Data[base+k*inner+in]
			}
			out.Data[o*inner+in] = sum * inv
		}
	}
	return out, nil
}
