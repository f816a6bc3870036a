package paxos

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"go-multipaxos/paxos/messages"
	"go-multipaxos/paxos/proposal"
)

// restartNode builds a second incarnation of a node with the same identity
// and stable storage directory, the way a crashed process would come back.
func restartNode(old *Node) *Node {
	n := NewNode(old.self.Host, old.self.Port, old.self.Num)
	n.StableDir = old.StableDir
	n.SetPeers(copyLocations(old.nodes))
	n.recoverStableStorage()
	return n
}

func TestRestartPreservesPromises(t *testing.T) {
	c := newCluster(t, 3, 43000)
	defer c.close()
	n2 := c.nodes[2]

	// promise psn 5 for csn 3, then accept (csn 3, psn 5, "X")
	n2.dispatch(messages.Message{
		Kind:   messages.PrepareRequest,
		Sender: *c.locs[0], Receiver: *c.locs[2],
		Csn: 3, Psn: 5,
	})
	n2.dispatch(messages.Message{
		Kind:   messages.AcceptRequest,
		Sender: *c.locs[0], Receiver: *c.locs[2],
		Proposal: &proposal.Proposal{Csn: 3, Psn: 5, V: "X"},
	})

	revived := restartNode(n2)

	// a prepare below the recovered promise is rejected: the promise stays
	outs := revived.dispatch(messages.Message{
		Kind:   messages.PrepareRequest,
		Sender: *c.locs[1], Receiver: *c.locs[2],
		Csn: 3, Psn: 4,
	})
	if len(outs) != 1 || outs[0].MinPsn != 5 {
		t.Fatalf("prepare(3, 4) after restart: got %+v, want min psn 5", outs)
	}

	// a higher prepare raises the promise and reports the accepted proposal
	outs = revived.dispatch(messages.Message{
		Kind:   messages.PrepareRequest,
		Sender: *c.locs[1], Receiver: *c.locs[2],
		Csn: 3, Psn: 6,
	})
	if len(outs) != 1 || outs[0].MinPsn != 6 {
		t.Fatalf("prepare(3, 6) after restart: got %+v, want min psn 6", outs)
	}
	p := outs[0].Proposal
	if p == nil || p.Csn != 3 || p.Psn != 5 || p.V != "X" {
		t.Fatalf("accepted proposal after restart = %v, want (csn: 3, psn: 5, v: X)", p)
	}
}

func TestSnapshotMatchesAcceptorState(t *testing.T) {
	c := newCluster(t, 3, 43010)
	defer c.close()
	n0 := c.nodes[0]

	n0.dispatch(messages.Message{
		Kind:   messages.PrepareRequest,
		Sender: *c.locs[1], Receiver: *c.locs[0],
		Csn: 0, Psn: 7,
	})
	n0.dispatch(messages.Message{
		Kind:   messages.AcceptRequest,
		Sender: *c.locs[1], Receiver: *c.locs[0],
		Proposal: &proposal.Proposal{Csn: 0, Psn: 7, V: "A"},
	})

	revived := restartNode(n0)
	revived.mu.Lock()
	defer revived.mu.Unlock()
	if revived.minPsns[0] != 7 {
		t.Errorf("recovered promise = %d, want 7", revived.minPsns[0])
	}
	accepted, ok := revived.maxAcceptedProposals[0]
	if !ok || accepted.V != "A" || accepted.Psn != 7 {
		t.Errorf("recovered accepted proposal = %v, want (csn: 0, psn: 7, v: A)", accepted)
	}
}

func TestFreshNodeHasNoSnapshot(t *testing.T) {
	c := newCluster(t, 3, 43020)
	defer c.close()
	n0 := c.nodes[0]

	n0.recoverStableStorage()
	if len(n0.minPsns) != 0 || len(n0.maxAcceptedProposals) != 0 {
		t.Error("fresh node recovered state out of nowhere")
	}
}

func TestCorruptSnapshotStartsFresh(t *testing.T) {
	c := newCluster(t, 3, 43030)
	defer c.close()
	n0 := c.nodes[0]

	if err := os.MkdirAll(n0.StableDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(n0.stableStoragePath(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	n0.recoverStableStorage()
	if len(n0.minPsns) != 0 || len(n0.maxAcceptedProposals) != 0 {
		t.Error("corrupt snapshot should leave the acceptor fresh")
	}
}

func TestClearStableStorage(t *testing.T) {
	c := newCluster(t, 3, 43040)
	defer c.close()
	n0 := c.nodes[0]

	n0.dispatch(messages.Message{
		Kind:   messages.PrepareRequest,
		Sender: *c.locs[1], Receiver: *c.locs[0],
		Csn: 0, Psn: 1,
	})
	if _, err := os.Stat(n0.stableStoragePath()); err != nil {
		t.Fatalf("snapshot missing after prepare: %v", err)
	}

	n0.ClearStableStorage()
	if _, err := os.Stat(n0.stableStoragePath()); !os.IsNotExist(err) {
		t.Fatalf("snapshot still present after clear: %v", err)
	}

	// no stray temp file either
	if _, err := os.Stat(filepath.Join(n0.StableDir, n0.self.ID()+".bak.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}
