package benchmark

import "errors"

var (
	// ErrNoData is returned when a team has no scored members.
	ErrNoData = errors.New("no benchmark data")
	// ErrUnknownMember is returned when a user has no snapshot in the team.
	ErrUnknownMember = errors.New("member not in team")
	// ErrTooFewMembers is returned when a simulation needs more members.
	ErrTooFewMembers = errors.New("not enough members to simulate")
)
