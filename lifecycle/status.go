// Package lifecycle implements the bounty state machine: a pure transition
// validator plus an engine that commits exactly one status-guarded write
// per call. It has no HTTP or database dependencies; stores plug in via
// the Store interface.
package lifecycle

// Status is a bounty's lifecycle state. The persisted value is the plain
// string, which doubles as the optimistic-concurrency predicate.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClaimed   Status = "claimed"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusFunded    Status = "funded"
	StatusVoting    Status = "voting"
	StatusPaid      Status = "paid"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected
}

// Action is a requested transition. Creation is a distinguished first
// transition (see Engine.Create) since it has no prior state to race
// against; the eight actions below all run through Apply.
type Action string

const (
	ActionClaim          Action = "claim"
	ActionSubmitEvidence Action = "submit_evidence"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionFundEscrow     Action = "fund_escrow"
	ActionLinkProposal   Action = "link_proposal"
	ActionMarkPaid       Action = "mark_paid"
	ActionCancelEscrow   Action = "cancel_escrow"
)

// from lists the statuses an action may be invoked from. mark_paid and
// cancel_escrow are reachable from both funded and voting: direct-release
// bounties skip the voting hop entirely.
var from = map[Action][]Status{
	ActionClaim:          {StatusOpen},
	ActionSubmitEvidence: {StatusClaimed},
	ActionApprove:        {StatusSubmitted},
	ActionReject:         {StatusSubmitted},
	ActionFundEscrow:     {StatusApproved},
	ActionLinkProposal:   {StatusFunded},
	ActionMarkPaid:       {StatusFunded, StatusVoting},
	ActionCancelEscrow:   {StatusFunded, StatusVoting},
}

// Known reports whether a is one of the named actions. Unknown action
// names are a caller programming fault, not a business-rule rejection.
func (a Action) Known() bool {
	_, ok := from[a]
	return ok
}

func (a Action) validFrom(s Status) bool {
	for _, f := range from[a] {
		if f == s {
			return true
		}
	}
	return false
}
