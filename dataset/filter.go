package dataset

import (
	"fmt"
	"strings"

	"github.com/cortexkit/eeg-bridge/tensor"
)

// ClassSpec is one parsed "GROUP_condition" filter entry.
type ClassSpec struct {
	Group     int
	Condition int
}

// ParseClassSpec splits a "GROUP_condition" string on its last
// underscore and resolves both halves. The group half may itself
// contain underscores.
func ParseClassSpec(s string) (ClassSpec, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return ClassSpec{}, fmt.Errorf("class filter %q is not of the form GROUP_condition", s)
	}
	groupName, condName := s[:i], s[i+1:]

	condition := -1
	for ci, name := range ConditionNames {
		if name == condName {
			condition = ci
			break
		}
	}
	if condition < 0 {
		return ClassSpec{}, fmt.Errorf("class filter %q: unknown condition %q", s, condName)
	}

	group := GroupIndex(groupName)
	if group == GroupUnmapped {
		return ClassSpec{}, fmt.Errorf("class filter %q: unknown group %q", s, groupName)
	}
	return ClassSpec{Group: group, Condition: condition}, nil
}

// FilterByClass keeps only the samples whose (group, condition) pair
// matches one of the specs. It returns the filtered samples and labels
// together with the original positional indices of the kept samples, so
// any other array parallel to the input can be filtered identically.
func FilterByClass(samples []*tensor.Tensor, labels *LabelSet, specs []string) ([]*tensor.Tensor, *LabelSet, []int, error) {
	if len(samples) != labels.Len() {
		return nil, nil, nil, fmt.Errorf("have %d samples but %d labels", len(samples), labels.Len())
	}

	wanted := make(map[ClassSpec]bool, len(specs))
	for _, s := range specs {
		spec, err := ParseClassSpec(s)
		if err != nil {
			return nil, nil, nil, err
		}
		wanted[spec] = true
	}

	var kept []int
	for i := 0; i < labels.Len(); i++ {
		pair := ClassSpec{Group: labels.Groups[i], Condition: labels.Conditions[i]}
		if wanted[pair] {
			kept = append(kept, i)
		}
	}

	filtered := make([]*tensor.Tensor, len(kept))
	for i, idx := range kept {
		filtered[i] = samples[idx]
	}
	return filtered, labels.Subset(kept), kept, nil
}
