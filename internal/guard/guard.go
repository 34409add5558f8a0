// Package guard holds the membership invariant checks gating every group
// mutation: creator is always an admin, admins are always members, the
// creator can never be removed or leave. Checks are pure; callers run them
// against a freshly loaded group before mutating.
package guard

import (
	"errors"
	"fmt"

	"messenger-service/internal/models"
)

var (
	// ErrForbidden marks an actor lacking the role the mutation requires.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidOperation marks a mutation that would break a group invariant.
	ErrInvalidOperation = errors.New("invalid operation")
)

// CheckAddMembers verifies the actor may add the given users.
func CheckAddMembers(g models.Group, actorID int64, memberIDs []int64) error {
	if err := requireAdmin(g, actorID); err != nil {
		return err
	}
	if len(memberIDs) == 0 {
		return fmt.Errorf("%w: no members given", ErrInvalidOperation)
	}
	for _, id := range memberIDs {
		if g.IsMember(id) {
			return fmt.Errorf("%w: user %d is already a member", ErrInvalidOperation, id)
		}
	}
	return nil
}

// CheckRemoveMember verifies the actor may remove the target. Removing an
// admin is reserved to the creator; removing the creator is never allowed.
func CheckRemoveMember(g models.Group, actorID, targetID int64) error {
	if err := requireAdmin(g, actorID); err != nil {
		return err
	}
	target, ok := g.Member(targetID)
	if !ok {
		return fmt.Errorf("%w: user %d is not a member", ErrInvalidOperation, targetID)
	}
	if targetID == g.CreatorID {
		return fmt.Errorf("%w: creator cannot be removed", ErrInvalidOperation)
	}
	if target.IsAdmin && actorID != g.CreatorID {
		return fmt.Errorf("%w: only the creator may remove an admin", ErrForbidden)
	}
	return nil
}

// CheckPromote verifies the actor may grant admin to the target.
func CheckPromote(g models.Group, actorID, targetID int64) error {
	if err := requireAdmin(g, actorID); err != nil {
		return err
	}
	target, ok := g.Member(targetID)
	if !ok {
		return fmt.Errorf("%w: user %d is not a member", ErrInvalidOperation, targetID)
	}
	if target.IsAdmin {
		return fmt.Errorf("%w: user %d is already an admin", ErrInvalidOperation, targetID)
	}
	return nil
}

// CheckDemote verifies the actor may revoke admin from the target. Demotion
// is reserved to the creator, who can never be demoted.
func CheckDemote(g models.Group, actorID, targetID int64) error {
	if !g.IsMember(actorID) {
		return fmt.Errorf("%w: not a group member", ErrForbidden)
	}
	if actorID != g.CreatorID {
		return fmt.Errorf("%w: only the creator may demote an admin", ErrForbidden)
	}
	if targetID == g.CreatorID {
		return fmt.Errorf("%w: creator cannot be demoted", ErrInvalidOperation)
	}
	target, ok := g.Member(targetID)
	if !ok {
		return fmt.Errorf("%w: user %d is not a member", ErrInvalidOperation, targetID)
	}
	if !target.IsAdmin {
		return fmt.Errorf("%w: user %d is not an admin", ErrInvalidOperation, targetID)
	}
	return nil
}

// CheckLeave verifies the user may leave the group on their own.
func CheckLeave(g models.Group, userID int64) error {
	if !g.IsMember(userID) {
		return fmt.Errorf("%w: not a group member", ErrForbidden)
	}
	if userID == g.CreatorID {
		return fmt.Errorf("%w: creator cannot leave the group", ErrInvalidOperation)
	}
	return nil
}

func requireAdmin(g models.Group, actorID int64) error {
	if !g.IsMember(actorID) {
		return fmt.Errorf("%w: not a group member", ErrForbidden)
	}
	if !g.IsAdmin(actorID) {
		return fmt.Errorf("%w: admin required", ErrForbidden)
	}
	return nil
}
