package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"exchange_go/internal/domain"
)

// ConversionSession is the part of the session the HTTP surface needs
type ConversionSession interface {
	Convert(req domain.Request) (uuid.UUID, error)
	Snapshot() domain.LedgerSnapshot
}

// Server exposes the conversion session over HTTP. It plays the role of the
// original screen: POST /api/convert collects the three inputs, /ws streams
// the observed output values.
type Server struct {
	session ConversionSession
	hub     *Hub
	router  *http.ServeMux
}

// NewServer wires the routes
func NewServer(session ConversionSession, hub *Hub) *Server {
	s := &Server{
		session: session,
		hub:     hub,
		router:  http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("POST /api/convert", s.convert())
	s.router.HandleFunc("GET /api/balances", s.balances())
	s.router.HandleFunc("GET /ws", s.events())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// convert produces the HTTP handler starting a conversion attempt
func (s *Server) convert() http.HandlerFunc {

	// request mirrors the screen inputs: the amount arrives as free text
	type request struct {
		Amount string `json:"amount"`
		From   string `json:"from"`
		To     string `json:"to"`
	}

	type accepted struct {
		AttemptID string `json:"attempt_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, domain.Reason("BAD_REQUEST"), "invalid json")
			return
		}

		id, err := s.session.Convert(domain.Request{
			Amount: domain.ParseAmount(req.Amount),
			From:   domain.Code(req.From),
			To:     domain.Code(req.To),
		})
		if err != nil {
			writeError(w, statusFor(err), domain.ReasonFor(err), err.Error())
			return
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(accepted{AttemptID: id.String()})
	}
}

// balances produces the HTTP handler returning the current ledger snapshot
func (s *Server) balances() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.session.Snapshot())
	}
}

// events produces the HTTP handler attaching a websocket client
func (s *Server) events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hub.Attach(w, r, s.session.Snapshot())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConversionInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, status int, reason domain.Reason, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"reason": string(reason),
		"error":  message,
	})
}
