package paxos

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"go-multipaxos/paxos/messages"
	"go-multipaxos/paxos/proposal"
)

// heartbeatLoop broadcasts a heartbeat at an interval chosen uniformly in
// [HeartbeatMin, HeartbeatMax), rerolled after every fire so the nodes'
// heartbeats don't synchronize. Heartbeats carry no semantic payload; they
// exercise the transport as a liveness probe.
func (n *Node) heartbeatLoop() {
	for {
		delay := n.HeartbeatMin
		if n.HeartbeatMax > n.HeartbeatMin {
			delay += time.Duration(rand.Int63n(int64(n.HeartbeatMax - n.HeartbeatMin)))
		}

		select {
		case <-n.done:
			return
		case <-time.After(delay):
			n.mu.Lock()
			outs := n.broadcastLocked(messages.Message{Kind: messages.Heartbeat})
			n.mu.Unlock()
			n.transmit(outs)
		}
	}
}

// reProposer is the per-slot retransmission timer. It is armed by
// submitLocked and fires once after ProposeTimeout, re-submitting the same
// value for the same slot (which burns a fresh psn and arms a new timer).
// It is killed when the proposer records a majority promise for the slot,
// or when a newer round replaces it.
type reProposer struct {
	node    *Node
	prop    proposal.Proposal
	timeout time.Duration
	stop    chan struct{}
	once    sync.Once
}

// newReProposer snapshots the propose timeout at arm time. Callers hold n.mu.
func newReProposer(n *Node, p proposal.Proposal) *reProposer {
	return &reProposer{node: n, prop: p, timeout: n.ProposeTimeout, stop: make(chan struct{})}
}

func (r *reProposer) run() {
	t := time.NewTimer(r.timeout)
	defer t.Stop()

	select {
	case <-t.C:
		log.Printf("[PROPOSER %d] -> No majority for csn %d within %v; re-proposing %q.",
			r.node.self.Num, r.prop.Csn, r.timeout, r.prop.V)
		r.node.SubmitAt(r.prop.V, r.prop.Csn)
	case <-r.stop:
	}
}

// kill cancels the timer. Cancellation is cooperative and idempotent; a
// timer that already fired is unaffected.
func (r *reProposer) kill() {
	r.once.Do(func() { close(r.stop) })
}
