package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
)

// Server exposes a Toolbox's helpers over loopback HTTP so the external
// interpreter process the Executor shells out to (which never links
// against this module) can reach them as plain HTTP calls. Generated
// code talks to it through a small client shim injected ahead of the
// program body, using the address the Executor passes in
// AUTOWEB_TOOLBOX_ADDR.
type Server struct {
	tb       *Toolbox
	listener net.Listener
	srv      *http.Server
}

// NewServer binds an ephemeral loopback port and registers the toolbox
// routes. Call Addr after a successful call to start serving.
func NewServer(tb *Toolbox) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("toolbox: listen: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{tb: tb, listener: ln, srv: &http.Server{Handler: mux}}
	mux.HandleFunc("/http_request", s.handleHTTPRequest)
	mux.HandleFunc("/download_file", s.handleDownloadFile)
	mux.HandleFunc("/save_data", s.handleSaveData)
	mux.HandleFunc("/db_insert", s.handleDBInsert)
	mux.HandleFunc("/clean_html", s.handleCleanHTML)
	mux.HandleFunc("/notify", s.handleNotify)
	return s, nil
}

// Addr is the loopback address generated code should send requests to.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks accepting connections until Shutdown is called. Intended
// to run in its own goroutine for the lifetime of the agent process.
func (s *Server) Serve() error {
	err := s.srv.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHTTPRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string            `json:"url"`
		Method  string            `json:"method"`
		Headers map[string]string `json:"headers"`
		Params  map[string]string `json:"params"`
		Data    interface{}       `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.tb.HTTPRequest(r.Context(), req.URL, req.Method, req.Headers, req.Params, req.Data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dest, err := s.tb.DownloadFile(r.Context(), req.URL, req.Path)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": dest})
}

func (s *Server) handleSaveData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []map[string]interface{} `json:"rows"`
		Path string                   `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dest, err := s.tb.SaveData(req.Rows, req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": dest})
}

func (s *Server) handleDBInsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Table string                 `json:"table"`
		Row   map[string]interface{} `json:"row"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.tb.DBInsert(req.Table, req.Row); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCleanHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": s.tb.CleanHTML(req.HTML)})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.tb.Notify(req.Message)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
