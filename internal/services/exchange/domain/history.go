package domain

import "sort"

// HistoryIndex maps a giver's name to the names they were previously assigned.
type HistoryIndex map[string]map[string]struct{}

// NewHistoryIndex returns an empty index.
func NewHistoryIndex() HistoryIndex {
	return HistoryIndex{}
}

// Add records that giver was previously assigned recipient. Repeated rows
// for the same giver accumulate.
func (h HistoryIndex) Add(giver, recipient string) {
	set, ok := h[giver]
	if !ok {
		set = make(map[string]struct{})
		h[giver] = set
	}
	set[recipient] = struct{}{}
}

// Has reports whether giver was previously assigned recipient. A nil index has no history.
func (h HistoryIndex) Has(giver, recipient string) bool {
	_, ok := h[giver][recipient]
	return ok
}

// Recipients returns giver's previous recipients in sorted order.
func (h HistoryIndex) Recipients(giver string) []string {
	set := h[giver]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Forbids reports whether giver may not receive candidate: either it is the
// giver's own name or a recorded previous recipient.
func (h HistoryIndex) Forbids(giver, candidate string) bool {
	return giver == candidate || h.Has(giver, candidate)
}
