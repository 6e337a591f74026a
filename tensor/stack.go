package tensor

import "fmt"

// ShapeMismatchError reports samples whose shapes could not be
// reconciled by padding. Shapes carries at most the first five
// offending shapes for diagnostics.
type ShapeMismatchError struct {
	Shapes [][]int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("cannot stack samples with irreconcilable shapes (first %d: %v)", len(e.Shapes), e.Shapes)
}

// Stack pads a list of possibly ragged samples to a common shape and
// stacks them along a new leading axis. Every sample's rank is first
// right-padded with size-1 axes up to the maximum rank, then each axis
// is zero-padded up to the per-axis maximum extent. The original values
// always occupy the low-index corner of their padded slot; padding
// never reorders existing values. The result's leading dimension equals
// len(samples).
func Stack(samples []*Tensor) (*Tensor, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot stack zero samples")
	}

	maxRank := 0
	for _, s := range samples {
		if s.Rank() > maxRank {
			maxRank = s.Rank()
		}
	}

	// Right-pad every shape with size-1 axes, validating each sample's
	// shape/data consistency on the way. Inconsistent samples are the
	// one way stacking can still fail after normalization.
	padded := make([][]int, len(samples))
	var offending [][]int
	for i, s := range samples {
		if calculateNumElements(s.Shape) != len(s.Data) {
			if len(offending) < 5 {
				offending = append(offending, s.Shape)
			}
			continue
		}
		shape := make([]int, maxRank)
		for j := range shape {
			shape[j] = 1
		}
		copy(shape, s.Shape)
		padded[i] = shape
	}
	if len(offending) > 0 {
		return nil, &ShapeMismatchError{Shapes: offending}
	}

	maxDims := make([]int, maxRank)
	for _, shape := range padded {
		for j, dim := range shape {
			if dim > maxDims[j] {
				maxDims[j] = dim
			}
		}
	}

	out, err := Zeros(append([]int{len(samples)}, maxDims...))
	if err != nil {
		return nil, err
	}

	slotStrides := out.Strides[1:]
	for i, s := range samples {
		base := i * out.Strides[0]
		shape := padded[i]
		idx := make([]int, maxRank)
		for flat := 0; flat < len(s.Data); flat++ {
			dst := base
			for j := range idx {
				dst += idx[j] * slotStrides[j]
			}
			out.Data[dst] = s.Data[flat]

			for axis := maxRank - 1; axis >= 0; axis-- {
				idx[axis]++
				if idx[axis] < shape[axis] {
					break
				}
				idx[axis] = 0
			}
		}
	}
	return out, nil
}
