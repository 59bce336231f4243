// Command ws-probe drives a short end-to-end auction against a running
// server: it registers a player, starts the auction and the bid timer,
// places a bid over HTTP, and prints every event received on the
// WebSocket feed until the lot resolves.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	api := getenv("API", "http://localhost:8080")
	adminPin := getenv("ADMIN_PIN", "admin123")
	captainPin := getenv("CAPTAIN1_PIN", "team1")
	wsURL := toWS(api) + "/ws?role=spectator"
	log.Printf("API=%s WS=%s", api, wsURL)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(message, &ev); err != nil {
				log.Printf("unparseable event: %s", message)
				continue
			}
			log.Printf("event %-16s %s", ev.Type, truncate(ev.Data, 120))
			if ev.Type == "PlayerSold" || ev.Type == "PlayerUnsold" {
				return
			}
		}
	}()

	must(post(api+"/api/admin/clear-data", map[string]any{"adminPin": adminPin}))
	must(post(api+"/api/admin/add-player", map[string]any{
		"adminPin": adminPin, "name": "Probe Batsman", "role": "Batsman", "basePrice": 1000,
	}))
	must(post(api+"/api/admin/start-auction", map[string]any{"adminPin": adminPin}))
	must(post(api+"/api/admin/start-timer", map[string]any{"adminPin": adminPin}))
	must(post(api+"/api/captain/place-bid", map[string]any{
		"pin": captainPin, "captain": "captain1", "amount": 1500,
	}))
	must(post(api+"/api/admin/next-player", map[string]any{"adminPin": adminPin}))

	select {
	case <-done:
		log.Printf("lot resolved; probe complete")
	case <-time.After(10 * time.Second):
		log.Fatalf("timed out waiting for lot resolution event")
	}
}

func post(url string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s: %d %s", url, resp.StatusCode, payload)
	}
	log.Printf("POST %s -> %d", url, resp.StatusCode)
	return nil
}

func toWS(api string) string {
	s := strings.Replace(api, "https://", "wss://", 1)
	return strings.Replace(s, "http://", "ws://", 1)
}

func truncate(data []byte, n int) string {
	s := string(data)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
