// Package guard decides where navigation inside a deal should land. It is a
// pure function of state and requested path; it never mutates anything.
package guard

import (
	"fmt"

	"dealroom/internal/domain"
)

// ProposalPath is where a deal lives until its proposal is accepted.
func ProposalPath(dealID string) string {
	return fmt.Sprintf("/deals/%s/proposal", dealID)
}

// SetupPath is the room setup form.
func SetupPath(dealID string) string {
	return fmt.Sprintf("/deals/%s/room/setup", dealID)
}

// RoomPath is the deal room itself.
func RoomPath(dealID string) string {
	return fmt.Sprintf("/deals/%s/room", dealID)
}

// Evaluate checks whether the requested path is allowed for the deal's
// current state and returns the redirect target when it is not.
//
// Rules, in order: an unaccepted proposal pins everything to the proposal
// path; a room still at setup_pending pins room views to the setup path.
// Anything else passes through.
func Evaluate(snap domain.Snapshot, currentPath string) (redirect string, ok bool) {
	if snap.Deal.ProposalStatus != domain.ProposalAccepted {
		if currentPath == ProposalPath(snap.Deal.ID) {
			return "", true
		}
		return ProposalPath(snap.Deal.ID), false
	}
	if snap.Room.Status == domain.RoomSetupPending {
		if currentPath == SetupPath(snap.Deal.ID) {
			return "", true
		}
		return SetupPath(snap.Deal.ID), false
	}
	return "", true
}
