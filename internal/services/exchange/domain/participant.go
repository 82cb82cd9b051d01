// Package domain defines the participants and history of a gift exchange.
package domain

// Participant is one person in the exchange.
//
// ID is the identity key; Name is only used for forbidden-set comparisons, so
// two people sharing a name remain distinct participants.
type Participant struct {
	ID        string
	Name      string
	Email     string
	Recipient *Participant
}

// NewParticipant creates a participant without a recipient.
func NewParticipant(id, name, email string) *Participant {
	return &Participant{ID: id, Name: name, Email: email}
}

// Assigned reports whether the participant has a recipient.
func (p *Participant) Assigned() bool {
	return p != nil && p.Recipient != nil
}

// ResetRecipients clears every recipient in roster.
func ResetRecipients(roster []*Participant) {
	for _, p := range roster {
		if p != nil {
			p.Recipient = nil
		}
	}
}

// Names returns the names of participants in order.
func Names(participants []*Participant) []string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}
	return names
}
