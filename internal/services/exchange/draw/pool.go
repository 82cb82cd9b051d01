package draw

import "github.com/louisbranch/secretsanta/internal/services/exchange/domain"

// pool owns the candidate slots that have not been handed out yet. Slots are
// addressed by index and removed by swapping with the last slot, so each
// removal is O(1) and a scan is O(remaining).
type pool struct {
	slots []*domain.Participant
}

func newPool(roster []*domain.Participant) *pool {
	slots := make([]*domain.Participant, len(roster))
	copy(slots, roster)
	return &pool{slots: slots}
}

// eligible appends to dst the indexes of slots accepted by keep.
func (p *pool) eligible(dst []int, keep func(*domain.Participant) bool) []int {
	for i, candidate := range p.slots {
		if keep(candidate) {
			dst = append(dst, i)
		}
	}
	return dst
}

// take removes and returns the slot at index i.
func (p *pool) take(i int) *domain.Participant {
	last := len(p.slots) - 1
	taken := p.slots[i]
	p.slots[i] = p.slots[last]
	p.slots[last] = nil
	p.slots = p.slots[:last]
	return taken
}
