package models

// Selection is an insertion-ordered set of indices into an Account slice.
// The zero value is an empty selection ready to use.
type Selection struct {
	order []int
	index map[int]struct{}
}

// NewSelection returns a selection holding indices in the given order,
// skipping duplicates.
func NewSelection(indices ...int) *Selection {
	s := &Selection{}
	for _, i := range indices {
		s.Add(i)
	}
	return s
}

// SelectAll selects 0..n-1.
func SelectAll(n int) *Selection {
	s := &Selection{}
	for i := 0; i < n; i++ {
		s.Add(i)
	}
	return s
}

// SelectExcept selects every account for which skip returns false.
func SelectExcept(accounts []Account, skip func(Account) bool) *Selection {
	s := &Selection{}
	for i, a := range accounts {
		if skip == nil || !skip(a) {
			s.Add(i)
		}
	}
	return s
}

// Add appends i unless it is already selected.
func (s *Selection) Add(i int) {
	if s.index == nil {
		s.index = make(map[int]struct{})
	}
	if _, ok := s.index[i]; ok {
		return
	}
	s.index[i] = struct{}{}
	s.order = append(s.order, i)
}

// Remove deselects i.
func (s *Selection) Remove(i int) {
	if _, ok := s.index[i]; !ok {
		return
	}
	delete(s.index, i)
	for pos, v := range s.order {
		if v == i {
			s.order = append(s.order[:pos], s.order[pos+1:]...)
			break
		}
	}
}

// Toggle flips the membership of i.
func (s *Selection) Toggle(i int) {
	if s.Has(i) {
		s.Remove(i)
	} else {
		s.Add(i)
	}
}

func (s *Selection) Has(i int) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[i]
	return ok
}

func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.order = nil
	s.index = nil
}

// Indices returns a snapshot of the selected indices in insertion order.
// Later changes to s do not affect the returned slice.
func (s *Selection) Indices() []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Limit keeps only the first n selected indices. n <= 0 is a no-op.
func (s *Selection) Limit(n int) {
	if n <= 0 || n >= len(s.order) {
		return
	}
	for _, i := range s.order[n:] {
		delete(s.index, i)
	}
	s.order = s.order[:n:n]
}
