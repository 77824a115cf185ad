package timeline

// Timeline is an ordered collection of elements. Collection order is
// significant: where elements of the same kind overlap, the earlier one wins.
//
// Timeline is not safe for concurrent use; callers serialize access.
type Timeline struct {
	elements []Element
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Len returns the number of elements.
func (tl *Timeline) Len() int {
	return len(tl.elements)
}

func (tl *Timeline) indexOf(id string) int {
	for i := range tl.elements {
		if tl.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Add appends e. It returns false if e has no id or the id is already taken.
func (tl *Timeline) Add(e Element) bool {
	if e.ID == "" || tl.indexOf(e.ID) >= 0 {
		return false
	}
	e = e.Clone()
	normalize(&e)
	tl.elements = append(tl.elements, e)
	return true
}

// InsertAfter places e immediately after the element with id afterID, or
// appends it when afterID is not present.
func (tl *Timeline) InsertAfter(afterID string, e Element) bool {
	if e.ID == "" || tl.indexOf(e.ID) >= 0 {
		return false
	}
	e = e.Clone()
	normalize(&e)

	i := tl.indexOf(afterID)
	if i < 0 {
		tl.elements = append(tl.elements, e)
		return true
	}
	tl.elements = append(tl.elements, Element{})
	copy(tl.elements[i+2:], tl.elements[i+1:])
	tl.elements[i+1] = e
	return true
}

// Remove deletes the element with the given id and returns it.
func (tl *Timeline) Remove(id string) (Element, bool) {
	i := tl.indexOf(id)
	if i < 0 {
		return Element{}, false
	}
	removed := tl.elements[i]
	tl.elements = append(tl.elements[:i], tl.elements[i+1:]...)
	return removed, true
}

// Update applies p to the element with the given id and returns the
// normalized result.
func (tl *Timeline) Update(id string, p Patch) (Element, bool) {
	i := tl.indexOf(id)
	if i < 0 {
		return Element{}, false
	}
	e := &tl.elements[i]
	p.apply(e)
	normalize(e)
	return e.Clone(), true
}

// Get returns a copy of the element with the given id.
func (tl *Timeline) Get(id string) (Element, bool) {
	i := tl.indexOf(id)
	if i < 0 {
		return Element{}, false
	}
	return tl.elements[i].Clone(), true
}

// All returns copies of every element in collection order.
func (tl *Timeline) All() []Element {
	out := make([]Element, len(tl.elements))
	for i := range tl.elements {
		out[i] = tl.elements[i].Clone()
	}
	return out
}

// OfKind returns copies of the elements of kind k in collection order.
func (tl *Timeline) OfKind(k TrackKind) []Element {
	var out []Element
	for i := range tl.elements {
		if tl.elements[i].TrackKind == k {
			out = append(out, tl.elements[i].Clone())
		}
	}
	return out
}

// ActiveAt returns the elements of kind k whose half-open interval
// contains t, in collection order.
func (tl *Timeline) ActiveAt(t float64, k TrackKind) []Element {
	var out []Element
	for i := range tl.elements {
		e := &tl.elements[i]
		if e.TrackKind == k && e.Contains(t) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// FirstActiveAt returns the first element of kind k active at t.
func (tl *Timeline) FirstActiveAt(t float64, k TrackKind) (Element, bool) {
	for i := range tl.elements {
		e := &tl.elements[i]
		if e.TrackKind == k && e.Contains(t) {
			return e.Clone(), true
		}
	}
	return Element{}, false
}

// Duration returns the latest end time across all elements, or 0 when empty.
func (tl *Timeline) Duration() float64 {
	var d float64
	for i := range tl.elements {
		if end := tl.elements[i].End(); end > d {
			d = end
		}
	}
	return d
}

// TrackEnd returns the latest end time among elements of kind k.
func (tl *Timeline) TrackEnd(k TrackKind) float64 {
	var d float64
	for i := range tl.elements {
		if tl.elements[i].TrackKind != k {
			continue
		}
		if end := tl.elements[i].End(); end > d {
			d = end
		}
	}
	return d
}

// Boundaries returns the start and end times of every element except the
// one with id exclude.
func (tl *Timeline) Boundaries(exclude string) []float64 {
	out := make([]float64, 0, 2*len(tl.elements))
	for i := range tl.elements {
		e := &tl.elements[i]
		if e.ID == exclude {
			continue
		}
		out = append(out, e.StartTime, e.End())
	}
	return out
}

// CountKind returns how many elements of kind k exist.
func (tl *Timeline) CountKind(k TrackKind) int {
	n := 0
	for i := range tl.elements {
		if tl.elements[i].TrackKind == k {
			n++
		}
	}
	return n
}
