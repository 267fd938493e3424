package problemdetails

import (
	"encoding/json"
	"net/http"
)

// ContentType is the RFC 7807 media type.
const ContentType = "application/problem+json"

// ProblemDetails is the error body shared by every API endpoint.
type ProblemDetails struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// Write serializes the problem to the response. The status on the wire always
// matches problem.Status.
func Write(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
