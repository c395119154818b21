// Package main runs a demo WebSocket client for the live event stream: it
// seeds an area and a critically full bin, subscribes to the alerts topic,
// and prints the events the monitor produces.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed an area and a bin inside it.
	area := post(base+"/v1/areas", `{"name":"Demo Ward","boundary":[{"lat":0,"lng":0},{"lat":0,"lng":1},{"lat":1,"lng":1},{"lat":1,"lng":0},{"lat":0,"lng":0}],"startPoint":{"lat":0.1,"lng":0.1},"endPoint":{"lat":0.9,"lng":0.9}}`)
	log.Printf("area: %s", area["id"])

	// Connect to the event stream first so nothing is missed.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/stream", RawQuery: "topics=alerts,schedules"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			data, _ := json.Marshal(evt.Data)
			log.Printf("WS <- %s: %s", evt.Type, data)
		}
	}()

	bin := post(base+"/v1/bins", `{"location":{"lat":0.5,"lng":0.5},"fillLevel":95,"wasteType":"GENERAL"}`)
	log.Printf("bin: %s (fill 95%%, waiting for the monitor to alert)", bin["id"])

	select {
	case <-time.After(30 * time.Second):
	case <-done:
	}
}

func post(url, body string) map[string]any {
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}
