package deployments

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// LabelSet is the set of tags of a deployment record.
type LabelSet struct {
	elements map[string]struct{}
}

// NewLabelSet initializes a new LabelSet with any number of labels. Empty labels are ignored.
func NewLabelSet(labels ...string) LabelSet {
	s := LabelSet{elements: make(map[string]struct{}, len(labels))}
	s.Add(labels...)

	return s
}

// Add inserts one or more labels into the set.
func (s *LabelSet) Add(labels ...string) {
	if s.elements == nil {
		s.elements = make(map[string]struct{})
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		s.elements[l] = struct{}{}
	}
}

// Contains checks if the set contains the given label.
func (s LabelSet) Contains(label string) bool {
	_, ok := s.elements[label]

	return ok
}

// ContainsAny reports whether the set shares at least one label with labels.
func (s LabelSet) ContainsAny(labels ...string) bool {
	return slices.ContainsFunc(labels, s.Contains)
}

// Len returns the number of labels.
func (s LabelSet) Len() int {
	return len(s.elements)
}

// List returns the labels as a sorted slice of strings.
func (s LabelSet) List() []string {
	if len(s.elements) == 0 {
		return []string{}
	}

	return slices.Sorted(maps.Keys(s.elements))
}

// String returns the labels as a sorted, comma separated string.
func (s LabelSet) String() string {
	return strings.Join(s.List(), ",")
}

// Equal checks if two LabelSets are equal.
func (s LabelSet) Equal(other LabelSet) bool {
	if s.Len() == 0 && other.Len() == 0 {
		return true
	}

	return maps.Equal(s.elements, other.elements)
}

// ParseLabelSet is the inverse of String.
func ParseLabelSet(s string) LabelSet {
	if s == "" {
		return NewLabelSet()
	}

	return NewLabelSet(strings.Split(s, ",")...)
}

// MarshalJSON marshals the set as a sorted array.
func (s LabelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON reads the set from an array.
func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*s = NewLabelSet(labels...)

	return nil
}
