package paxos

import (
	"encoding/json"
	"net/http"
)

// ToJson is used to marshal interfaces into a valid json string.
func ToJson(i interface{}) string {
	res, _ := json.MarshalIndent(i, "", "	")
	return string(res)
}

// AddContentTypeJson adds the content type header to responses.
func AddContentTypeJson(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

// EnableCors allows requests from anywhere.
func EnableCors(w *http.ResponseWriter) {
	(*w).Header().Set("Access-Control-Allow-Origin", "*")
}
