package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// EventStreamHandler handles GET /v1/events/stream. Clients pick topics with
// ?topics=alerts,schedules (default: all) and receive one JSON Event per
// message.
func (s *Server) EventStreamHandler(w http.ResponseWriter, r *http.Request) {
	topics := []string{TopicAlerts, TopicSchedules, TopicLocations}
	if v := r.URL.Query().Get("topics"); v != "" {
		topics = topics[:0]
		for _, t := range strings.Split(v, ",") {
			switch t {
			case TopicAlerts, TopicSchedules, TopicLocations:
				topics = append(topics, t)
			default:
				writeProblem(w, http.StatusBadRequest, "Unknown topic", t, r.URL.Path)
				return
			}
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	merged := make(chan Event, 16)
	done := make(chan struct{})
	for _, topic := range topics {
		ch := s.Broker.Subscribe(topic)
		go func() {
			defer s.Broker.Unsubscribe(topic, ch)
			for {
				select {
				case <-done:
					return
				case evt, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- evt:
					default:
					}
				}
			}
		}()
	}
	defer close(done)

	// Reader goroutine notices client disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case evt := <-merged:
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
