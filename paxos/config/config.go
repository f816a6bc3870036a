// Package config exposes some static variables loaded through a .yaml file used to assemble a node.
package config

import (
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"
)

// CONF is the Conf object which holds all the variables
var CONF Conf

// PeerConf describes one member of the fixed node set.
type PeerConf struct {
	HOST string `yaml:"host"` // HOST is the address the peer listens on.
	PORT int    `yaml:"port"` // PORT is the TCP port the peer listens on.
	NUM  int    `yaml:"num"`  // NUM is the peer's index in [0, N); it also seeds its proposal numbers.
}

// Conf is a type describing the meta variables used by different parts of the algorithm.
type Conf struct {
	NUM        int        `yaml:"num"`        // NUM selects which entry of NODES is this node.
	NODES      []PeerConf `yaml:"nodes"`      // NODES defines the fixed list of the paxos nodes of the system.
	LEADER_NUM int        `yaml:"leader_num"` // LEADER_NUM flags the initial advisory leader.

	SOCKET_TIMEOUT  int `yaml:"socket_timeout"`  // SOCKET_TIMEOUT (ms) bounds every outbound connection; expiry is read as a peer crash.
	PROPOSE_TIMEOUT int `yaml:"propose_timeout"` // PROPOSE_TIMEOUT (ms) is how long a proposer waits for a majority before re-proposing.
	HEARTBEAT_MIN   int `yaml:"heartbeat_min"`   // HEARTBEAT_MIN (ms) is the lower bound of the randomized heartbeat interval.
	HEARTBEAT_MAX   int `yaml:"heartbeat_max"`   // HEARTBEAT_MAX (ms) is the upper bound of the randomized heartbeat interval.

	STABLE_STORAGE_DIR string `yaml:"stable_storage_dir"` // STABLE_STORAGE_DIR holds the per-node acceptor snapshots.

	DB_TYPE    string `yaml:"db_type"`    // DB_TYPE selects the chosen-value store: "sqlite", "redis", or "" for in-memory only.
	DB_PATH    string `yaml:"db_path"`    // DB_PATH locates the sqlite database file.
	REDIS_ADDR string `yaml:"redis_addr"` // REDIS_ADDR locates the redis server.

	CONTROL_PORT int `yaml:"control_port"` // CONTROL_PORT defines the TCP port the HTTP control surface listens on.
}

// LoadConfigFile loads the config '.yaml' file onto the callee Conf object.
func (c *Conf) LoadConfigFile(fn string) {

	yamlFile, err := ioutil.ReadFile(fn)
	if err != nil {
		log.Fatalf("yamlFile.Get err %v ", err)
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		log.Fatalf("Unmarshal: %v", err)
	}
}

// FillEmptyFields fills in those fields that were left empty in the .yaml file.
// Fields it does not touch (NUM, NODES, LEADER_NUM, DB_TYPE) keep whatever the
// '.yaml' file gave them, zero values included; an empty DB_TYPE means no
// chosen-value store.
func (c *Conf) FillEmptyFields() {

	if c.SOCKET_TIMEOUT == 0 {
		c.SOCKET_TIMEOUT = 5000
	}

	if c.PROPOSE_TIMEOUT == 0 {
		c.PROPOSE_TIMEOUT = 10000
	}

	if c.HEARTBEAT_MIN == 0 {
		c.HEARTBEAT_MIN = 1000
	}

	if c.HEARTBEAT_MAX == 0 {
		c.HEARTBEAT_MAX = 2000
	}

	if c.STABLE_STORAGE_DIR == "" {
		c.STABLE_STORAGE_DIR = "stableStorage"
	}

	if c.DB_PATH == "" {
		c.DB_PATH = "chosen.db"
	}

	if c.REDIS_ADDR == "" {
		c.REDIS_ADDR = "localhost:6379"
	}

	if c.CONTROL_PORT == 0 {
		c.CONTROL_PORT = 8000
	}
}
