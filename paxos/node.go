// Package paxos implements the main components of a replicated multi-decree
// Paxos node: proposer, acceptor, and learner co-resident in every member of
// a fixed node set, agreeing on an ordered log of opaque string values.
// Each log slot (csn) is decided by an independent single-decree instance;
// slots may be decided concurrently and out of order.
package paxos

import (
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"go-multipaxos/paxos/location"
	"go-multipaxos/paxos/messages"
	"go-multipaxos/paxos/proposal"
	"go-multipaxos/paxos/queries"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// Defaults for the node tunables.
const (
	DefaultSocketTimeout  = 5000 * time.Millisecond
	DefaultProposeTimeout = 10000 * time.Millisecond
	DefaultHeartbeatMin   = 1000 * time.Millisecond
	DefaultHeartbeatMax   = 2000 * time.Millisecond
	DefaultStableDir      = "stableStorage"
)

// inboxSize bounds the dispatcher queue; messages past it are dropped, which
// the protocol tolerates the same way it tolerates network loss.
const inboxSize = 256

// Node is one member of the consensus group. It plays proposer, acceptor,
// and learner at once. All state transitions are serialized under a single
// mutex; the listener, the heartbeat task, and the re-propose timers run as
// background goroutines and contend for that mutex when they touch state.
type Node struct {
	// SocketTimeout bounds every outbound connection; expiry is read as a
	// peer crash. SocketTimeout also bounds inbound reads.
	SocketTimeout time.Duration
	// ProposeTimeout is how long a proposer waits for a majority promise
	// before re-proposing the slot with a fresh psn.
	ProposeTimeout time.Duration
	// HeartbeatMin and HeartbeatMax bound the randomized heartbeat interval.
	HeartbeatMin time.Duration
	HeartbeatMax time.Duration
	// StableDir holds the per-node acceptor snapshot.
	StableDir string
	// Store, when non-nil, persists chosen values so a restarted node can
	// reload its decided log. Best-effort only; never safety-relevant.
	Store queries.Store

	mu    sync.Mutex
	self  *location.NodeLocationData
	nodes []*location.NodeLocationData

	// proposer state
	currentCsn        int
	psn               int
	numAcceptRequests map[int]int
	proposals         map[int]*proposal.Proposal
	adoptedPsns       map[int]int
	reProposers       map[int]*reProposer

	// acceptor state, the durable part
	minPsns              map[int]int
	maxAcceptedProposals map[int]proposal.Proposal

	// learner state
	numAcceptNotifications map[int]int
	hasLearned             map[int]bool
	chosenValues           map[int]string

	inbox    chan messages.Message
	done     chan struct{}
	listener net.Listener
	running  bool
}

// NewNode builds a node listening at host:port whose index (and psn seed)
// is num. The node set must be provided through SetPeers before Start.
func NewNode(host string, port, num int) *Node {
	self := &location.NodeLocationData{Host: host, Port: port, Num: num}
	return &Node{
		SocketTimeout:  DefaultSocketTimeout,
		ProposeTimeout: DefaultProposeTimeout,
		HeartbeatMin:   DefaultHeartbeatMin,
		HeartbeatMax:   DefaultHeartbeatMax,
		StableDir:      DefaultStableDir,

		self:  self,
		nodes: []*location.NodeLocationData{self},

		psn:                    num, // when advanced properly, this ensures unique psns
		numAcceptRequests:      make(map[int]int),
		proposals:              make(map[int]*proposal.Proposal),
		adoptedPsns:            make(map[int]int),
		reProposers:            make(map[int]*reProposer),
		minPsns:                make(map[int]int),
		maxAcceptedProposals:   make(map[int]proposal.Proposal),
		numAcceptNotifications: make(map[int]int),
		hasLearned:             make(map[int]bool),
		chosenValues:           make(map[int]string),

		inbox: make(chan messages.Message, inboxSize),
	}
}

// SetPeers installs the fixed node set. The set must contain an entry whose
// num matches this node; that entry becomes the node's own location so the
// leader flag stays coherent across the view.
func (n *Node) SetPeers(nodes []*location.NodeLocationData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes = nodes
	for _, node := range nodes {
		if node.Num == n.self.Num {
			node.Host = n.self.Host
			node.Port = n.self.Port
			n.self = node
		}
	}
}

// Location returns this node's own membership entry.
func (n *Node) Location() *location.NodeLocationData {
	return n.self
}

// BecomeLeader flags this node as the advisory leader and clears the flag on
// every other member of the local view.
func (n *Node) BecomeLeader() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.self.BecomeLeader()
	for _, node := range n.nodes {
		if node != n.self {
			node.BecomeNonLeader()
		}
	}
}

// IsLeader reports whether this node currently holds the advisory leader flag.
func (n *Node) IsLeader() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.self.IsLeader()
}

// Start recovers the acceptor snapshot and any persisted chosen values, then
// brings up the dispatcher, the listener, and the heartbeat task. The
// snapshot is loaded before the listener accepts its first message.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return nil
	}

	n.recoverStableStorage()
	n.recoverChosenValues()

	l, err := net.Listen("tcp", n.self.Addr())
	if err != nil {
		return err
	}
	n.listener = l
	n.done = make(chan struct{})
	n.running = true

	go n.dispatchLoop()
	go n.listenLoop(l)
	go n.heartbeatLoop()

	log.Printf("[NODE %d] -> Started, listening on %s.", n.self.Num, n.self.Addr())
	return nil
}

// Stop shuts the background tasks down. Timers are cancelled cooperatively;
// in-flight unicasts run to their deadline and exit.
func (n *Node) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	close(n.done)
	n.listener.Close()
	for csn, rp := range n.reProposers {
		rp.kill()
		delete(n.reProposers, csn)
	}
	n.mu.Unlock()

	log.Printf("[NODE %d] -> Stopped.", n.self.Num)
}

// IsRunning reports whether Start has been called and Stop has not.
func (n *Node) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// Submit initiates a proposal for the next free slot of the local csn counter.
func (n *Node) Submit(value string) {
	n.mu.Lock()
	csn := n.currentCsn
	n.currentCsn++
	outs := n.submitLocked(value, csn)
	n.mu.Unlock()
	n.transmit(outs)
}

// SubmitAt initiates (or re-initiates) a proposal for a specific slot.
// The re-propose timer calls back into SubmitAt when a round stalls.
func (n *Node) SubmitAt(value string, csn int) {
	n.mu.Lock()
	outs := n.submitLocked(value, csn)
	n.mu.Unlock()
	n.transmit(outs)
}

// GetDecidedValues exposes the learned log as a dense slice up to the
// highest decided slot. Slots not yet decided are explicit "" holes.
func (n *Node) GetDecidedValues() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	max := -1
	for csn := range n.chosenValues {
		if csn > max {
			max = csn
		}
	}
	values := make([]string, max+1)
	for csn, v := range n.chosenValues {
		values[csn] = v
	}
	return values
}

// ChosenValue returns the decided value for one slot, with ok reporting
// whether the slot has been decided at all.
func (n *Node) ChosenValue(csn int) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.chosenValues[csn]
	return v, ok
}

// dispatchLoop drains the inbox and runs every message through the state
// machine. Self-deliveries from broadcast land on the same inbox as network
// messages, so the mutex domain is never re-entered.
func (n *Node) dispatchLoop() {
	for {
		select {
		case <-n.done:
			return
		case m := <-n.inbox:
			n.transmit(n.dispatch(m))
		}
	}
}

// dispatch runs one message through the state machine under the node's
// exclusion domain and returns the messages to send in response. Sends
// happen outside the critical section.
func (n *Node) dispatch(m messages.Message) []messages.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch m.Kind {
	case messages.Heartbeat:
		// presence on the wire is the whole payload
		return nil
	case messages.PrepareRequest:
		return n.handlePrepareRequest(m)
	case messages.PrepareResponse:
		return n.handlePrepareResponse(m)
	case messages.AcceptRequest:
		return n.handleAcceptRequest(m)
	case messages.AcceptNotification:
		return n.handleAcceptNotification(m)
	case messages.NewLeaderNotification:
		return n.handleNewLeaderNotification(m)
	default:
		log.Printf("[NODE %d] -> Unknown message kind %q received, discarding.", n.self.Num, m.Kind)
		return nil
	}
}

// submitLocked runs one proposal round for (value, csn): it cancels any
// re-propose timer for the slot, resets the promise counter, arms a fresh
// timer, and returns the PrepareRequest broadcast. The local psn advances by
// the membership size, preserving psn mod N == num. Callers hold n.mu.
func (n *Node) submitLocked(value string, csn int) []messages.Message {
	if rp, ok := n.reProposers[csn]; ok {
		rp.kill()
		delete(n.reProposers, csn)
	}

	n.numAcceptRequests[csn] = 0
	delete(n.adoptedPsns, csn)
	p := &proposal.Proposal{Csn: csn, Psn: n.psn, V: value}
	n.proposals[csn] = p

	rp := newReProposer(n, *p)
	n.reProposers[csn] = rp
	go rp.run()

	log.Printf("[PROPOSER %d] -> Starting prepare round %s.", n.self.Num, p)
	outs := n.broadcastLocked(messages.Message{
		Kind: messages.PrepareRequest,
		Csn:  csn,
		Psn:  p.Psn,
	})
	n.psn += len(n.nodes)
	return outs
}

// broadcastLocked stamps the sender and fans a message out to every member
// of the view, self included. Callers hold n.mu.
func (n *Node) broadcastLocked(m messages.Message) []messages.Message {
	m.Sender = *n.self
	outs := make([]messages.Message, 0, len(n.nodes))
	for _, node := range n.nodes {
		out := m
		out.Receiver = *node
		outs = append(outs, out)
	}
	return outs
}

// unicastLocked stamps the sender and addresses a message to one peer.
// Callers hold n.mu.
func (n *Node) unicastLocked(to location.NodeLocationData, m messages.Message) []messages.Message {
	m.Sender = *n.self
	m.Receiver = to
	return []messages.Message{m}
}
