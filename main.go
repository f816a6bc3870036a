package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"go-multipaxos/paxos"
	"go-multipaxos/paxos/config"
	"go-multipaxos/paxos/location"
	"go-multipaxos/paxos/queries"
)

var node *paxos.Node

/*
# ========================================================= #
#                       NODE HANDLERS                       #
# ========================================================= #
*/

// submitHandler handles GET requests on /node/submit.
// This route submits a value for agreement; with a 'csn' parameter the value
// targets that specific slot, otherwise the next free slot is used.
func submitHandler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	v := r.Form.Get("v")
	if v == "" {
		http.Error(w, "missing 'v' parameter", 400)
		return
	}

	// adding response headers
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	if rawCsn := r.Form.Get("csn"); rawCsn != "" {
		csn, err := strconv.Atoi(rawCsn)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		node.SubmitAt(v, csn)
		_, _ = fmt.Fprintf(w, "{ \"message\": \"submitted %s for csn %d\" }", v, csn)
	} else {
		node.Submit(v)
		_, _ = fmt.Fprintf(w, "{ \"message\": \"submitted %s\" }", v)
	}
}

// getDecidedValuesHandler handles GET requests on /node/get_decided_values.
// This route provides a way to retrieve the decided log; undecided slots
// below the highest decided one show up as empty strings.
func getDecidedValuesHandler(w http.ResponseWriter, _ *http.Request) {
	// adding response headers
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	// json encoding
	_, _ = fmt.Fprint(w, paxos.ToJson(node.GetDecidedValues()))
}

// getDecidedValueHandler handles GET requests on /node/get_decided_value.
// This route provides a way to retrieve the decided value of a single slot.
func getDecidedValueHandler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	csn, _ := strconv.Atoi(r.Form.Get("csn"))

	v, ok := node.ChosenValue(csn)

	// adding response headers
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprint(w, paxos.ToJson(map[string]interface{}{
		"csn":     csn,
		"v":       v,
		"decided": ok,
	}))
}

// becomeLeaderHandler handles GET requests on /node/become_leader.
// This route flags the local node as the advisory leader.
func becomeLeaderHandler(w http.ResponseWriter, _ *http.Request) {
	node.BecomeLeader()

	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprintf(w, "{ \"message\": \"leader\" }")
}

// isLeaderHandler handles GET requests on /node/is_leader.
func isLeaderHandler(w http.ResponseWriter, _ *http.Request) {
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprintf(w, "{ \"leader\": %t }", node.IsLeader())
}

// statusHandler handles GET requests on /node/status and returns whether the
// paxos node is running.
func statusHandler(w http.ResponseWriter, _ *http.Request) {
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	status := "stopped"
	if node.IsRunning() {
		status = "running"
	}
	_, _ = fmt.Fprintf(w, "{ \"message\": \"%s\" }", status)
}

// stopHandler handles GET requests on /node/stop and stops the paxos node.
// The control surface itself stays up so the node can be inspected.
func stopHandler(w http.ResponseWriter, _ *http.Request) {
	node.Stop()

	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	log.Print("[CTRL] -> Paxos node has been stopped.")
	_, _ = fmt.Fprintf(w, "{ \"message\": \"stopped\" }")
}

// clearStableStorageHandler handles GET requests on /node/clear_stable_storage.
func clearStableStorageHandler(w http.ResponseWriter, _ *http.Request) {
	node.ClearStableStorage()

	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprintf(w, "{ \"message\": \"cleared\" }")
}

/*
# ========================================================= #
#                       OTHER HANDLERS                      #
# ========================================================= #
*/

// welcomeHandler is the handler of GET requests to the root route "/" or to any other non existing route.
func welcomeHandler(w http.ResponseWriter, _ *http.Request) {
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprintf(w, "{ \"message\": \"%s\" }", "GoLang implementation of a replicated multi-decree Paxos node.")
}

// infoHandler handles GET requests to route /info and returns the language,
// the node num, and the listen address of this node.
func infoHandler(w http.ResponseWriter, _ *http.Request) {
	paxos.EnableCors(&w)
	paxos.AddContentTypeJson(&w)

	_, _ = fmt.Fprintf(w, "{ \"message\": \"golang@%d@%s\" }", config.CONF.NUM, node.Location().Addr())
}

func init() {
	configPath := "./config.yaml"

	// config path can be specified as an argument from command line
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// initialize config variables
	config.CONF.LoadConfigFile(configPath)
	config.CONF.FillEmptyFields()
}

func main() {
	// assembling the node set from config
	var self *location.NodeLocationData
	nodes := make([]*location.NodeLocationData, 0, len(config.CONF.NODES))
	for _, pc := range config.CONF.NODES {
		loc := &location.NodeLocationData{Host: pc.HOST, Port: pc.PORT, Num: pc.NUM}
		if pc.NUM == config.CONF.LEADER_NUM {
			loc.BecomeLeader()
		}
		if pc.NUM == config.CONF.NUM {
			self = loc
		}
		nodes = append(nodes, loc)
	}
	if self == nil {
		log.Fatalf("[MAIN] -> Node num %d is not in the configured node set.", config.CONF.NUM)
	}

	node = paxos.NewNode(self.Host, self.Port, self.Num)
	node.SocketTimeout = time.Duration(config.CONF.SOCKET_TIMEOUT) * time.Millisecond
	node.ProposeTimeout = time.Duration(config.CONF.PROPOSE_TIMEOUT) * time.Millisecond
	node.HeartbeatMin = time.Duration(config.CONF.HEARTBEAT_MIN) * time.Millisecond
	node.HeartbeatMax = time.Duration(config.CONF.HEARTBEAT_MAX) * time.Millisecond
	node.StableDir = config.CONF.STABLE_STORAGE_DIR
	node.SetPeers(nodes)

	// chosen-value store is optional; without one the decided log is
	// in-memory only and a restarted node re-observes notifications
	if config.CONF.DB_TYPE != "" {
		store, err := queries.NewStore(config.CONF.DB_TYPE, config.CONF.DB_PATH, config.CONF.REDIS_ADDR)
		if err != nil {
			log.Fatalf("[MAIN] -> Could not open chosen-value store: %v.", err)
		}
		node.Store = store
		defer store.Close()
	}

	if err := node.Start(); err != nil {
		log.Fatalf("[MAIN] -> Could not start node: %v.", err)
	}

	// META ROUTES
	http.HandleFunc("/", welcomeHandler)
	http.HandleFunc("/info", infoHandler)

	// NODE ROUTES
	http.HandleFunc("/node/submit", submitHandler)
	http.HandleFunc("/node/get_decided_values", getDecidedValuesHandler)
	http.HandleFunc("/node/get_decided_value", getDecidedValueHandler)
	http.HandleFunc("/node/become_leader", becomeLeaderHandler)
	http.HandleFunc("/node/is_leader", isLeaderHandler)
	http.HandleFunc("/node/status", statusHandler)
	http.HandleFunc("/node/stop", stopHandler)
	http.HandleFunc("/node/clear_stable_storage", clearStableStorageHandler)

	log.Printf("[MAIN] -> Serving node control on port %d.", config.CONF.CONTROL_PORT)
	log.Fatal(http.ListenAndServe(":"+strconv.Itoa(config.CONF.CONTROL_PORT), nil))
}
