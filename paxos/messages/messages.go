// Package messages exposes the structures used for inter-node communication.
// Messages are marshalled to json before being sent to remote nodes and
// unmarshalled back on receipt, one message per connection.
package messages

import (
	"go-multipaxos/paxos/location"
	"go-multipaxos/paxos/proposal"
)

// Kind tags a Message with the role-specific request it carries.
type Kind string

const (
	Heartbeat             Kind = "heartbeat"
	PrepareRequest        Kind = "prepare_request"
	PrepareResponse       Kind = "prepare_response"
	AcceptRequest         Kind = "accept_request"
	AcceptNotification    Kind = "accept_notification"
	NewLeaderNotification Kind = "new_leader_notification"
)

// Message is the single wire record. Every message carries its kind, the
// sender, and the intended receiver; the remaining fields are kind-specific
// and zero-valued when they do not apply.
//
//	PrepareRequest        -> Csn, Psn
//	PrepareResponse       -> Csn, MinPsn, Proposal (nil when the acceptor
//	                         has never accepted anything for this csn)
//	AcceptRequest         -> Proposal
//	AcceptNotification    -> Proposal
//	NewLeaderNotification -> Num
//	Heartbeat             -> no payload
type Message struct {
	Kind     Kind                      `json:"kind"`
	Sender   location.NodeLocationData `json:"sender"`
	Receiver location.NodeLocationData `json:"receiver"`
	Csn      int                       `json:"csn,omitempty"`
	Psn      int                       `json:"psn,omitempty"`
	MinPsn   int                       `json:"min_psn,omitempty"`
	Proposal *proposal.Proposal        `json:"proposal,omitempty"`
	Num      int                       `json:"num,omitempty"`
}
