package domain

// Status is the lifecycle state of a proposal.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusRequested Status = "REQUESTED"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusPostponed Status = "POSTPONED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRequested, StatusSent, StatusConfirmed, StatusRejected, StatusPostponed:
		return true
	}
	return false
}

// Editable statuses accept item and field mutations by the staff owner.
// Customers can only edit their own cart draft, see AccessPolicy.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRequested
}

// reactivatable lists the states a staff owner may pull back to DRAFT.
var reactivatable = map[Status]bool{
	StatusDraft:     true,
	StatusRequested: true,
	StatusSent:      true,
	StatusRejected:  true,
}

func (s Status) Reactivatable() bool {
	return reactivatable[s]
}
