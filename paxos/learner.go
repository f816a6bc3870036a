package paxos

import (
	"log"

	"go-multipaxos/paxos/messages"
)

// handleAcceptNotification runs the learner. A slot is learned once a
// majority of accept notifications arrives; after that the chosen value is
// permanent and further notifications for the slot are ignored.
// Chosen-value persistence is best-effort: a store failure is logged and the
// in-memory log stays authoritative. Callers hold n.mu.
func (n *Node) handleAcceptNotification(m messages.Message) []messages.Message {
	if m.Proposal == nil {
		log.Printf("[LEARNER %d] -> Accept notification without a proposal, discarding.", n.self.Num)
		return nil
	}
	accepted := *m.Proposal
	csn := accepted.Csn

	log.Printf("[LEARNER %d] -> Got accept notification from %d: %s.", n.self.Num, m.Sender.Num, &accepted)

	if n.hasLearned[csn] { // ignore if already heard from a majority
		return nil
	}

	n.numAcceptNotifications[csn]++
	if n.numAcceptNotifications[csn] > len(n.nodes)/2 { // has heard from a majority?
		n.hasLearned[csn] = true
		n.chosenValues[csn] = accepted.V
		log.Printf("[LEARNER %d] -> Learned: %d, %s.", n.self.Num, csn, accepted.V)

		if n.Store != nil {
			if err := n.Store.SetChosenValue(csn, accepted.V); err != nil {
				log.Printf("[LEARNER %d] -> Problem persisting chosen value for csn %d: %v.", n.self.Num, csn, err)
			}
		}
	}

	return nil
}

// recoverChosenValues reloads the decided log from the chosen-value store so
// a restarted node does not have to re-observe accept notifications.
// Callers hold n.mu.
func (n *Node) recoverChosenValues() {
	if n.Store == nil {
		return
	}
	values, err := n.Store.GetAllChosenValues()
	if err != nil {
		log.Printf("[LEARNER %d] -> Problem reading chosen values from store: %v.", n.self.Num, err)
		return
	}
	for csn, v := range values {
		n.chosenValues[csn] = v
		n.hasLearned[csn] = true
	}
	if len(values) > 0 {
		log.Printf("[LEARNER %d] -> Recovered %d chosen value(s) from store.", n.self.Num, len(values))
	}
}
