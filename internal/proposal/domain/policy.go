package domain

import (
	"github.com/smallbiznis/propoza/internal/actorcontext"
)

// AccessPolicy answers what an actor may do with a proposal. The role check
// happens once per request; all branching lives in the two strategies.
type AccessPolicy interface {
	CanView(actor actorcontext.Actor, p Proposal) bool
	CanMutate(actor actorcontext.Actor, p Proposal) bool
	CanTransition(actor actorcontext.Actor, p Proposal) bool
}

// PolicyFor picks the strategy for a role.
func PolicyFor(role actorcontext.Role) AccessPolicy {
	if role == actorcontext.RoleStaff {
		return staffPolicy{}
	}
	return customerPolicy{}
}

// staffPolicy: ownership gates everything; mutations only in editable
// statuses.
type staffPolicy struct{}

func (staffPolicy) CanView(actor actorcontext.Actor, p Proposal) bool {
	return p.OwnerID == actor.ID
}

func (staffPolicy) CanMutate(actor actorcontext.Actor, p Proposal) bool {
	return p.OwnerID == actor.ID && p.Status.Editable()
}

func (staffPolicy) CanTransition(actor actorcontext.Actor, p Proposal) bool {
	return p.OwnerID == actor.ID
}

// customerPolicy: a customer sees their own proposals and edits only the
// cart draft they still own.
type customerPolicy struct{}

func (customerPolicy) CanView(actor actorcontext.Actor, p Proposal) bool {
	return p.CustomerID == actor.ID
}

func (customerPolicy) CanMutate(actor actorcontext.Actor, p Proposal) bool {
	return p.OwnerID == actor.ID && p.CustomerID == actor.ID && p.Status == StatusDraft
}

func (customerPolicy) CanTransition(actor actorcontext.Actor, p Proposal) bool {
	return p.OwnerID == actor.ID && p.CustomerID == actor.ID && p.Status == StatusDraft
}
