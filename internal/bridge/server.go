package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"bugshot-cli/internal/logging"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const maxMessageBytes = 1 << 20

// NewRouter exposes the hub over HTTP:
//
//	POST /selection {"value": "..."}
//	POST /messages  {"type": "...", "value": "..."}
//	GET  /healthz
func NewRouter(h *Hub) *mux.Router {
	log := logging.For("bridge")
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "listeners": h.Len()})
	}).Methods(http.MethodGet)
	r.HandleFunc("/selection", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Value string `json:"value"`
		}
		if err := decode(w, req, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"message": err.Error()}}})
			return
		}
		deliver(w, h, log, Message{Type: TypeSelection, Value: body.Value})
	}).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/messages", func(w http.ResponseWriter, req *http.Request) {
		var m Message
		if err := decode(w, req, &m); err != nil || strings.TrimSpace(m.Type) == "" {
			msg := "missing message type"
			if err != nil {
				msg = err.Error()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"message": msg}}})
			return
		}
		deliver(w, h, log, m)
	}).Methods(http.MethodPost, http.MethodOptions)
	r.Use(corsMiddleware)
	return r
}

func deliver(w http.ResponseWriter, h *Hub, log zerolog.Logger, m Message) {
	n := h.Dispatch(m)
	log.Debug().Str("type", m.Type).Int("delivered", n).Msg("message")
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"delivered": n}})
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxMessageBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Pages post from arbitrary origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type Server struct {
	srv *http.Server
	ln  net.Listener
	log zerolog.Logger
}

// Listen binds addr (use "127.0.0.1:0" for an ephemeral port) and starts serving.
func Listen(addr string, h *Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:      NewRouter(h),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		ln:  ln,
		log: logging.For("bridge"),
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("bridge stopped")
		}
	}()
	s.log.Info().Str("addr", s.Addr()).Msg("bridge listening")
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Bookmarklet returns a javascript: URL that posts the page's current selection to addr.
func Bookmarklet(addr string) string {
	return "javascript:(()=>{fetch('http://" + addr + "/selection',{method:'POST'," +
		"headers:{'Content-Type':'application/json'}," +
		"body:JSON.stringify({value:String(window.getSelection())})})})()"
}
