// Package draw assigns every participant a secret recipient.
//
// The engine is a single greedy pass in roster order. Each giver draws
// uniformly from the pool entries outside its forbidden set (its own name plus
// its recorded history). When that leaves nothing, the history constraint is
// dropped for that giver and only self-assignment is excluded. A giver that is
// left facing only itself receives nothing, and the run is reported as
// incomplete rather than returned as a broken roster.
//
// The pass is order dependent and not globally optimal: late givers can be
// starved. Callers that need a complete assignment retry with a fresh draw
// from the same source.
package draw

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
)

// MinParticipants is the smallest roster the engine accepts. A single
// participant could only be assigned to themselves, which is never allowed.
const MinParticipants = 2

// Rand is the random capability the engine draws from. *math/rand.Rand
// satisfies it.
type Rand interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Outcome tags whether a run assigned everyone.
type Outcome int

const (
	// OutcomeComplete means every participant has a recipient.
	OutcomeComplete Outcome = iota
	// OutcomeIncomplete means at least one participant was left without one.
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Result is the outcome of one engine run.
type Result struct {
	Outcome Outcome
	// Participants is the roster in input order with recipients attached.
	Participants []*domain.Participant
	// Unassigned lists givers that ended the run without a recipient.
	Unassigned []*domain.Participant
	// Relaxed lists givers whose history constraint had to be dropped.
	Relaxed []*domain.Participant
}

// Complete reports whether the run assigned everyone.
func (r Result) Complete() bool {
	return r.Outcome == OutcomeComplete
}

// Err returns nil for a complete run, otherwise an error wrapping
// domain.ErrAssignmentIncomplete that names the unassigned givers.
func (r Result) Err() error {
	if r.Complete() {
		return nil
	}
	names := domain.Names(r.Unassigned)
	return apperrors.WithMetadata(
		apperrors.CodeAssignmentIncomplete,
		fmt.Sprintf("no valid recipient left for %s", strings.Join(names, ", ")),
		map[string]string{"unassigned": strings.Join(names, ",")},
	)
}

// ErrNilRand indicates Assign was called without a random source.
var ErrNilRand = errors.New("random source is required")

// Assign runs one greedy pass over roster. Any recipients already set on the
// participants are cleared first, so a roster can be run again after an
// incomplete result.
func Assign(roster []*domain.Participant, history domain.HistoryIndex, rng Rand) (Result, error) {
	if len(roster) < MinParticipants {
		return Result{}, apperrors.Wrap(
			apperrors.CodeInsufficientParticipants,
			fmt.Sprintf("roster has %d participant(s), need at least %d", len(roster), MinParticipants),
			domain.ErrInsufficientParticipants,
		)
	}
	if rng == nil {
		return Result{}, ErrNilRand
	}
	for i, p := range roster {
		if p == nil {
			return Result{}, fmt.Errorf("roster entry %d is nil", i)
		}
	}

	domain.ResetRecipients(roster)
	candidates := newPool(roster)
	scratch := make([]int, 0, len(roster))
	result := Result{Outcome: OutcomeComplete, Participants: roster}

	for _, giver := range roster {
		scratch = candidates.eligible(scratch[:0], func(c *domain.Participant) bool {
			return !history.Forbids(giver.Name, c.Name)
		})
		if len(scratch) == 0 {
			scratch = candidates.eligible(scratch[:0], func(c *domain.Participant) bool {
				return c.Name != giver.Name
			})
			if len(scratch) > 0 {
				result.Relaxed = append(result.Relaxed, giver)
			}
		}
		if len(scratch) == 0 {
			result.Unassigned = append(result.Unassigned, giver)
			continue
		}
		giver.Recipient = candidates.take(scratch[rng.Intn(len(scratch))])
	}

	if len(result.Unassigned) > 0 {
		result.Outcome = OutcomeIncomplete
	}
	return result, nil
}
