package paxos

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"go-multipaxos/paxos/proposal"
)

// nodeStableStorage is the durable half of the acceptor: the promise per
// slot and the highest accepted proposal per slot. Everything else a node
// holds is volatile and rebuilt by the protocol.
type nodeStableStorage struct {
	MinPsns              map[int]int               `json:"min_psns"`
	MaxAcceptedProposals map[int]proposal.Proposal `json:"max_accepted_proposals"`
}

func (n *Node) stableStoragePath() string {
	return filepath.Join(n.StableDir, n.self.ID()+".bak")
}

// recoverStableStorage loads the snapshot written by a previous incarnation
// of this node, if any. An absent file is a valid fresh node; a partial or
// corrupt snapshot is logged and the acceptor starts fresh. Callers hold n.mu.
func (n *Node) recoverStableStorage() {
	data, err := ioutil.ReadFile(n.stableStoragePath())
	if os.IsNotExist(err) {
		log.Printf("[NODE %d] -> No stable storage found.", n.self.Num)
		return
	}
	if err != nil {
		log.Printf("[NODE %d] -> Problem reading from stable storage: %v.", n.self.Num, err)
		return
	}

	var stored nodeStableStorage
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("[NODE %d] -> Problem decoding stable storage, starting fresh: %v.", n.self.Num, err)
		return
	}

	if stored.MinPsns != nil {
		n.minPsns = stored.MinPsns
	}
	if stored.MaxAcceptedProposals != nil {
		n.maxAcceptedProposals = stored.MaxAcceptedProposals
	}
	log.Printf("[NODE %d] -> Recovered stable storage (%d promise(s), %d accepted).",
		n.self.Num, len(n.minPsns), len(n.maxAcceptedProposals))
}

// updateStableStorage rewrites the full acceptor snapshot. The write goes to
// a temp file first and is renamed over the previous snapshot, so a crash
// mid-write leaves the old snapshot intact. A write fault is logged as a
// durability hazard; in-memory state stays consistent and the re-propose
// machinery covers liveness. Callers hold n.mu.
func (n *Node) updateStableStorage() {
	if err := os.MkdirAll(n.StableDir, 0755); err != nil {
		log.Printf("[NODE %d] -> Problem writing to stable storage: %v.", n.self.Num, err)
		return
	}

	data, err := json.Marshal(nodeStableStorage{
		MinPsns:              n.minPsns,
		MaxAcceptedProposals: n.maxAcceptedProposals,
	})
	if err != nil {
		log.Printf("[NODE %d] -> Problem encoding stable storage: %v.", n.self.Num, err)
		return
	}

	path := n.stableStoragePath()
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		log.Printf("[NODE %d] -> Problem writing to stable storage: %v.", n.self.Num, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Printf("[NODE %d] -> Problem writing to stable storage: %v.", n.self.Num, err)
	}
}

// ClearStableStorage removes this node's snapshot file, if present.
func (n *Node) ClearStableStorage() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := os.Remove(n.stableStoragePath()); err != nil && !os.IsNotExist(err) {
		log.Printf("[NODE %d] -> Problem clearing stable storage: %v.", n.self.Num, err)
	}
}
