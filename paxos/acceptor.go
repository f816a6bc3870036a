/*

An acceptor can receive two kinds of requests from proposers: prepare
requests and accept requests. An acceptor can ignore any request without
compromising safety, so we only need to say when it is allowed to respond:
(1) it can always respond to a prepare request;
(2) it can respond to an accept request, accepting the proposal, IFF it has
    not already promised a higher-numbered round for the same slot.

With this discipline an acceptor needs to remember only, per slot, the
number of the highest prepare request it has responded to (minPsns) and the
highest-numbered proposal it has ever accepted (maxAcceptedProposals).
Because that promise must survive failures, both maps are rewritten to
stable storage after every mutation and recovered before the listener
accepts anything.

One quirk is preserved deliberately: a prepare request whose psn equals the
current promise does not raise minPsns (the predicate is strictly <) but
still gets a response, so it still counts toward the proposer's majority.

*/

package paxos

import (
	"log"

	"go-multipaxos/paxos/messages"
)

// handlePrepareRequest runs the acceptor side of phase one. Callers hold n.mu.
func (n *Node) handlePrepareRequest(m messages.Message) []messages.Message {
	csn := m.Csn
	psn := m.Psn

	log.Printf("[ACCEPTOR %d] -> Got prepare request from %d: (csn: %d, psn: %d).", n.self.Num, m.Sender.Num, csn, psn)

	// new minPsn
	if cur, ok := n.minPsns[csn]; !ok || cur < psn {
		n.minPsns[csn] = psn
	}

	resp := messages.Message{
		Kind:   messages.PrepareResponse,
		Csn:    csn,
		MinPsn: n.minPsns[csn],
	}
	if accepted, ok := n.maxAcceptedProposals[csn]; ok {
		p := accepted
		resp.Proposal = &p
	}

	n.updateStableStorage()

	return n.unicastLocked(m.Sender, resp)
}

// handleAcceptRequest runs the acceptor side of phase two. The snapshot is
// rewritten before the accept notification goes out; if that write fails the
// fault is logged and the notification is still sent. Callers hold n.mu.
func (n *Node) handleAcceptRequest(m messages.Message) []messages.Message {
	if m.Proposal == nil {
		log.Printf("[ACCEPTOR %d] -> Accept request without a proposal, discarding.", n.self.Num)
		return nil
	}
	requested := *m.Proposal
	csn := requested.Csn
	psn := requested.Psn

	log.Printf("[ACCEPTOR %d] -> Got accept request from %d: %s.", n.self.Num, m.Sender.Num, &requested)

	// an absent minPsns entry means nothing has been promised for the slot
	if cur, ok := n.minPsns[csn]; ok && psn < cur {
		return nil // ignore
	}

	// "accept" the proposal
	if cur, ok := n.minPsns[csn]; !ok || psn > cur {
		n.minPsns[csn] = psn
	}
	n.maxAcceptedProposals[csn] = requested
	log.Printf("[ACCEPTOR %d] -> Accepted: %s.", n.self.Num, &requested)

	n.updateStableStorage()

	p := requested
	return n.broadcastLocked(messages.Message{
		Kind:     messages.AcceptNotification,
		Proposal: &p,
	})
}
