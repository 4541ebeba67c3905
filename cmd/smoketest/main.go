// Command smoketest drives a live server end to end: it logs two users in
// over REST, attaches both to the websocket endpoint, sends a message from one
// and waits for the other to receive it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var (
	baseURL = flag.String("base", "http://localhost:8080", "server base url")
	wsURL   = flag.String("ws", "ws://localhost:8080/ws", "websocket url")
	userA   = flag.String("user-a", "alice", "first username")
	userB   = flag.String("user-b", "bob", "second username")
	pass    = flag.String("pass", "hunter22", "password for both users")
)

func main() {
	flag.Parse()

	tokenA, idA := login(*userA, *pass)
	tokenB, idB := login(*userB, *pass)

	connA := connect(tokenA)
	defer connA.Close()
	connB := connect(tokenB)
	defer connB.Close()

	// Give the logins a moment to register before sending.
	time.Sleep(200 * time.Millisecond)

	send(connA, "sendMessage", map[string]interface{}{
		"receiverId": idB,
		"content":    "smoke test " + time.Now().Format(time.RFC3339),
	})

	deadline := time.Now().Add(5 * time.Second)
	connB.SetReadDeadline(deadline)
	connA.SetReadDeadline(deadline)

	expect(connB, "receive_message")
	expect(connA, "receive_message") // sender echo
	log.Printf("ok: %s -> %s delivered both ways", idA, idB)
}

func login(username, password string) (token, userID string) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(*baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("login %s: %v", username, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("login %s: status %d", username, resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("login %s: decode: %v", username, err)
	}
	return out.Token, out.User.ID
}

func connect(token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	send(conn, "login", map[string]string{"token": token})
	return conn
}

func send(conn *websocket.Conn, event string, data interface{}) {
	raw, _ := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		log.Fatalf("write %s: %v", event, err)
	}
}

func expect(conn *websocket.Conn, event string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("waiting for %s: %v", event, err)
		}
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Event == event {
			fmt.Printf("got %s: %s\n", frame.Event, frame.Data)
			return
		}
	}
}
