package stacker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spatialbytes/neonstack/core"
)

// Server exposes a stacked bundle over HTTP as JSON, for callers that want
// an in-process result without touching the filesystem.
type Server struct {
	Bundle *core.Bundle
}

func NewServer(bundle *core.Bundle) *Server {
	return &Server{Bundle: bundle}
}

// TableResponse is the JSON form of one stacked table.
type TableResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ErrorResponse is the JSON form of an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

var reqID int32

func addCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// HandleTables lists the bundle's table and text names.
func (s *Server) HandleTables(w http.ResponseWriter, r *http.Request) {
	addCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	texts := make([]string, 0, len(s.Bundle.Texts))
	for name := range s.Bundle.Texts {
		texts = append(texts, name)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tables": s.Bundle.Names(),
		"texts":  texts,
	})
}

// HandleTable serves one stacked table as JSON rows.
func (s *Server) HandleTable(w http.ResponseWriter, r *http.Request) {
	ctx := core.WithDefaultLogger(r.Context(), fmt.Sprintf("req-%d", atomic.AddInt32(&reqID, 1)))
	addCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("name")
	tab, ok := s.Bundle.Tables[name]
	if !ok {
		sendErrorResponse(w, fmt.Sprintf("no table named %s", name), http.StatusNotFound)
		return
	}
	core.Infof(ctx, "serving table %s (%d rows)", name, tab.NumRows())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TableResponse{
		Columns: tab.Columns,
		Rows:    processRowsForJSON(tab),
	})
}

// HandleText serves one text artifact (readme, citation) as plain text.
func (s *Server) HandleText(w http.ResponseWriter, r *http.Request) {
	addCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	name := r.PathValue("name")
	text, ok := s.Bundle.Texts[name]
	if !ok {
		sendErrorResponse(w, fmt.Sprintf("no text named %s", name), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, text)
}

// HandleHealth is the health check endpoint.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	addCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// processRowsForJSON prepares table rows for JSON serialization: int64 as
// strings to avoid precision loss in JavaScript clients, timestamps in
// RFC3339 form.
func processRowsForJSON(tab *core.Table) []map[string]any {
	rows := make([]map[string]any, len(tab.Rows))
	for i, row := range tab.Rows {
		out := make(map[string]any, len(row))
		for key, value := range row {
			if key == fileColumn {
				continue
			}
			switch v := value.(type) {
			case nil:
				out[key] = nil
			case int64:
				out[key] = strconv.FormatInt(v, 10)
			case time.Time:
				out[key] = v.UTC().Format(time.RFC3339Nano)
			default:
				out[key] = v
			}
		}
		rows[i] = out
	}
	return rows
}

// Mux returns the server's route table.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/tables", s.HandleTables)
	mux.HandleFunc("/tables/{name}", s.HandleTable)
	mux.HandleFunc("/texts/{name}", s.HandleText)
	return mux
}
