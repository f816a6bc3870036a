/*

A proposer chooses a proposal number psn and sends a prepare request to every
acceptor, asking for (a) a promise never again to accept a proposal numbered
less than psn, and (b) the highest-numbered proposal the acceptor has already
accepted for the slot, if any.

If the proposer hears back from a majority it issues an accept request whose
value is the value of the highest-numbered accepted proposal among the
responses, re-stamped with the proposer's own psn, or its own value if the
responders reported none. If a response reveals that a higher round is
already underway, the proposer abandons the round, advances its psn until it
is at least the reported promise, and starts over for the same slot carrying whatever value
it is championing by then.

*/

package paxos

import (
	"log"

	"go-multipaxos/paxos/messages"
)

// handlePrepareResponse runs the proposer side of phase one. Callers hold n.mu.
func (n *Node) handlePrepareResponse(m messages.Message) []messages.Message {
	csn := m.Csn

	log.Printf("[PROPOSER %d] -> Got prepare response from %d: (csn: %d, min psn: %d, accepted: %v).",
		n.self.Num, m.Sender.Num, csn, m.MinPsn, m.Proposal)

	// ignore if already heard from a majority, or no round is in flight
	count, ok := n.numAcceptRequests[csn]
	if !ok {
		return nil
	}
	p, ok := n.proposals[csn]
	if !ok {
		return nil
	}

	// if an acceptor already accepted something, champion the value of the
	// highest-numbered acceptance seen this round; our own psn still stamps
	// the accept request
	if m.Proposal != nil {
		if cur, ok := n.adoptedPsns[csn]; !ok || m.Proposal.Psn > cur {
			n.adoptedPsns[csn] = m.Proposal.Psn
			p.V = m.Proposal.V
			log.Printf("[PROPOSER %d] -> Adopting already-accepted value %q (psn %d) for csn %d.",
				n.self.Num, p.V, m.Proposal.Psn, csn)
		}
	}

	// if acceptors already promised something higher, the round is stale:
	// move up to at least the promise and re-initiate with the value we carry
	if m.MinPsn > p.Psn {
		for n.psn < m.MinPsn {
			n.psn += len(n.nodes)
		}
		log.Printf("[PROPOSER %d] -> Round for csn %d is stale (promised %d); retrying with psn %d.",
			n.self.Num, csn, m.MinPsn, n.psn)
		return n.submitLocked(p.V, csn)
	}

	count++
	if count > len(n.nodes)/2 { // has heard from a majority?
		delete(n.numAcceptRequests, csn)
		if rp, ok := n.reProposers[csn]; ok {
			rp.kill()
			delete(n.reProposers, csn)
		}
		log.Printf("[PROPOSER %d] -> Majority promise for csn %d; sending accept request %s.", n.self.Num, csn, p)
		accepted := *p
		return n.broadcastLocked(messages.Message{
			Kind:     messages.AcceptRequest,
			Proposal: &accepted,
		})
	}

	n.numAcceptRequests[csn] = count
	return nil
}
