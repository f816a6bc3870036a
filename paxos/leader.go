package paxos

import (
	"log"

	"go-multipaxos/paxos/messages"
)

// electNewLeader rotates the advisory leader to (currentLeader.num + 1) mod N
// and broadcasts the rotation. The local view is updated synchronously so the
// retry that follows a leader crash sees the new flags; the broadcast copy
// delivered to self re-applies the same rotation, which is idempotent.
// A split view across nodes is tolerable: the flag gates no safety property,
// and everyone converges on the last-broadcast rotation.
func (n *Node) electNewLeader() {
	n.mu.Lock()

	newNum := -1
	// find old leader and calculate new leader num
	for _, node := range n.nodes {
		if node.IsLeader() {
			newNum = (node.Num + 1) % len(n.nodes)
			break
		}
	}
	if newNum < 0 {
		n.mu.Unlock()
		return
	}

	n.applyLeaderLocked(newNum)
	outs := n.broadcastLocked(messages.Message{
		Kind: messages.NewLeaderNotification,
		Num:  newNum,
	})
	n.mu.Unlock()

	log.Printf("[NODE %d] -> Electing new leader: %d.", n.self.Num, newNum)
	n.transmit(outs)
}

// handleNewLeaderNotification installs the advertised leader in the local
// view: the node whose num matches becomes leader, everyone else does not.
// Callers hold n.mu.
func (n *Node) handleNewLeaderNotification(m messages.Message) []messages.Message {
	n.applyLeaderLocked(m.Num)
	return nil
}

func (n *Node) applyLeaderLocked(newNum int) {
	for _, node := range n.nodes {
		if node.Num == newNum {
			node.BecomeLeader()
		} else {
			node.BecomeNonLeader()
		}
	}
}
