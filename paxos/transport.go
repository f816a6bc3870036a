package paxos

import (
	"encoding/json"
	"log"
	"net"
	"time"

	"go-multipaxos/paxos/messages"
)

// listenLoop accepts connections sequentially, decodes one message per
// connection, and hands it to the dispatcher. Decode faults and listener
// faults are logged and the listener keeps going; only shutdown stops it.
func (n *Node) listenLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			log.Printf("[TRANSPORT %d] -> Problem accepting connection: %v.", n.self.Num, err)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(n.SocketTimeout))
		var m messages.Message
		if err := json.NewDecoder(conn).Decode(&m); err != nil {
			log.Printf("[TRANSPORT %d] -> Problem decoding message: %v.", n.self.Num, err)
			conn.Close()
			continue
		}
		conn.Close()
		n.enqueue(m)
	}
}

// transmit sends a batch of addressed messages. The copy addressed to self
// bypasses the network and lands on the dispatcher inbox; everything else
// goes out as one connection per message.
func (n *Node) transmit(outs []messages.Message) {
	for _, m := range outs {
		if m.Receiver.Num == n.self.Num {
			n.enqueue(m)
		} else {
			go n.unicast(m)
		}
	}
}

// enqueue posts a message onto the dispatcher inbox. A full inbox drops the
// message; the protocol absorbs that the same way it absorbs network loss.
func (n *Node) enqueue(m messages.Message) {
	select {
	case n.inbox <- m:
	default:
		log.Printf("[TRANSPORT %d] -> Inbox full, dropping %s message from %d.", n.self.Num, m.Kind, m.Sender.Num)
	}
}

// unicast opens a connection, writes one serialized message, and closes.
// The dial and the write are each bounded by SocketTimeout. Deadline expiry means the
// destination has crashed: if it was the flagged leader, a rotation is
// triggered and this same send is retried once. Other I/O faults are logged
// and the message is dropped.
func (n *Node) unicast(m messages.Message) {
	n.unicastAttempt(m, true)
}

func (n *Node) unicastAttempt(m messages.Message, mayRotate bool) {
	conn, err := net.DialTimeout("tcp", m.Receiver.Addr(), n.SocketTimeout)
	if err != nil {
		if isTimeout(err) {
			n.handleCrash(m, mayRotate)
		} else {
			log.Printf("[TRANSPORT %d] -> Problem sending %s to %d: %v.", n.self.Num, m.Kind, m.Receiver.Num, err)
		}
		return
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(n.SocketTimeout))
	if err := json.NewEncoder(conn).Encode(m); err != nil {
		if isTimeout(err) {
			n.handleCrash(m, mayRotate)
		} else {
			log.Printf("[TRANSPORT %d] -> Problem sending %s to %d: %v.", n.self.Num, m.Kind, m.Receiver.Num, err)
		}
	}
}

// handleCrash reacts to a send deadline expiring against a peer. If that
// peer was the flagged leader, elect a new one and retry this retransmission
// once; otherwise the message is simply dropped and the re-propose machinery
// covers liveness.
func (n *Node) handleCrash(m messages.Message, mayRotate bool) {
	log.Printf("[TRANSPORT %d] -> Detected crash from %d.", n.self.Num, m.Receiver.Num)
	if !mayRotate {
		return
	}

	n.mu.Lock()
	wasLeader := false
	for _, node := range n.nodes {
		if node.Num == m.Receiver.Num && node.IsLeader() {
			wasLeader = true
			break
		}
	}
	n.mu.Unlock()

	if !wasLeader {
		return
	}
	n.electNewLeader()
	n.unicastAttempt(m, false)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
