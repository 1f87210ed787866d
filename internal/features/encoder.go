package features

import (
	"fmt"
	"sort"
)

// TeamEncoder maps team identifiers to dense codes 0..k-1 in ascending
// identifier order.
type TeamEncoder struct {
	classes []int64
}

// FitTeamEncoder fits one identifier space over the union of all inputs.
func FitTeamEncoder(ids ...[]int64) *TeamEncoder {
	seen := make(map[int64]struct{})
	for _, set := range ids {
		for _, id := range set {
			seen[id] = struct{}{}
		}
	}
	classes := make([]int64, 0, len(seen))
	for id := range seen {
		classes = append(classes, id)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return &TeamEncoder{classes: classes}
}

// NewTeamEncoder restores an encoder from persisted classes, which must be
// strictly ascending.
func NewTeamEncoder(classes []int64) (*TeamEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("team encoder: no classes")
	}
	for i := 1; i < len(classes); i++ {
		if classes[i] <= classes[i-1] {
			return nil, fmt.Errorf("team encoder: classes not strictly ascending at %d", i)
		}
	}
	return &TeamEncoder{classes: append([]int64(nil), classes...)}, nil
}

// Transform returns the code for id.
func (e *TeamEncoder) Transform(id int64) (int, error) {
	i := sort.Search(len(e.classes), func(i int) bool { return e.classes[i] >= id })
	if i == len(e.classes) || e.classes[i] != id {
		return 0, &UnknownCategoryError{TeamID: id}
	}
	return i, nil
}

// Classes returns a copy of the fitted identifiers.
func (e *TeamEncoder) Classes() []int64 {
	return append([]int64(nil), e.classes...)
}

// Len returns the number of classes.
func (e *TeamEncoder) Len() int { return len(e.classes) }
