package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devmarvs/digibank/realtime"
	"github.com/devmarvs/digibank/session"
)

const eventsPingInterval = 25 * time.Second

type sessionEvent struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
}

// events streams session transitions so open views re-render when another
// view logs in or out.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	stream, err := realtime.Open(w, nil)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	defer stream.Close()

	// Holds only the latest state; listeners must not block the transition.
	changes := make(chan session.State, 1)
	unsubscribe := s.session.Subscribe(func(state session.State) {
		select {
		case <-changes:
		default:
		}
		changes <- state
	})
	defer unsubscribe()

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	var seq int
	send := func(state session.State) error {
		seq++
		return stream.SendJSON("session", strconv.Itoa(seq), sessionEvent{Authenticated: state.Authenticated, Identity: state.Identity})
	}
	if err := send(s.session.State()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-changes:
			if err := send(state); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
