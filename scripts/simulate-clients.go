package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type readyData struct {
	ConnectionID      string `json:"connectionId"`
	HeartbeatInterval int64  `json:"heartbeatInterval"`
}

var (
	wsURL         = flag.String("url", "ws://localhost:8080/ws", "Gateway websocket URL")
	jwtSecret     = flag.String("secret", "jwt-secret", "HS256 secret used to sign tokens")
	userPrefix    = flag.String("user-prefix", "demo-user-", "User ID prefix; users must exist in the database")
	numUsers      = flag.Int("users", 50, "Number of clients to connect")
	channelID     = flag.String("channel", "", "Channel to subscribe to and type in (required)")
	joinRate      = flag.Duration("join-rate", 20*time.Millisecond, "Time between client connects")
	typingRate    = flag.Float64("typing-rate", 0.2, "Probability of a typing burst per tick (0.0-1.0)")
	presenceRate  = flag.Float64("presence-rate", 0.05, "Probability of a presence change per tick (0.0-1.0)")
	tickInterval  = flag.Duration("tick", 5*time.Second, "Interval between simulated client actions")
	statsInterval = flag.Duration("stats", 10*time.Second, "Interval between stats lines")
)

type stats struct {
	connected atomic.Int64
	failed    atomic.Int64
	received  atomic.Int64
	errors    atomic.Int64
	sent      atomic.Int64
}

func main() {
	flag.Parse()

	if *channelID == "" {
		fmt.Println("Error: --channel flag is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st stats
		wg sync.WaitGroup
	)

	fmt.Printf("🚀 Connecting %d clients to %s...\n", *numUsers, *wsURL)
	startTime := time.Now()

	for i := 0; i < *numUsers; i++ {
		userID := fmt.Sprintf("%s%d", *userPrefix, i+1)
		wg.Go(func() {
			runClient(ctx, userID, &st)
		})

		if *joinRate > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(*joinRate):
			}
		}
	}

	fmt.Printf("⏱️  Dialed in %v\n", time.Since(startTime))
	fmt.Println("   Press Ctrl+C to stop")

	ticker := time.NewTicker(*statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n\n🛑 Simulation stopped")
			wg.Wait()
			printStats(&st)
			return
		case <-ticker.C:
			fmt.Printf("[%s] Connected: %d | Failed: %d | Sent: %d | Received: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				st.connected.Load(),
				st.failed.Load(),
				st.sent.Load(),
				st.received.Load(),
				st.errors.Load(),
			)
		}
	}
}

func runClient(ctx context.Context, userID string, st *stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *wsURL, nil)
	if err != nil {
		st.failed.Add(1)
		return
	}
	defer conn.Close()

	token, err := signToken(userID)
	if err != nil {
		st.failed.Add(1)
		return
	}

	var writeMu sync.Mutex
	send := func(typ string, data any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		st.sent.Add(1)
		return conn.WriteJSON(map[string]any{"type": typ, "data": data})
	}

	if err := send("IDENTIFY", map[string]string{"token": token}); err != nil {
		st.failed.Add(1)
		return
	}

	var ready frame
	if err := conn.ReadJSON(&ready); err != nil || ready.Type != "READY" {
		st.failed.Add(1)
		return
	}

	var rd readyData
	_ = json.Unmarshal(ready.Data, &rd)
	heartbeat := time.Duration(rd.HeartbeatInterval) * time.Millisecond
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	st.connected.Add(1)
	defer st.connected.Add(-1)

	if err := send("SUBSCRIBE", map[string][]string{"topics": {*channelID}}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			st.received.Add(1)
			if f.Type == "ERROR" {
				st.errors.Add(1)
			}
		}
	}()

	hbTicker := time.NewTicker(heartbeat / 2)
	defer hbTicker.Stop()

	actTicker := time.NewTicker(*tickInterval)
	defer actTicker.Stop()

	statuses := []string{"online", "idle", "dnd"}

	for {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			writeMu.Unlock()
			return
		case <-done:
			return
		case <-hbTicker.C:
			if err := send("HEARTBEAT", nil); err != nil {
				return
			}
		case <-actTicker.C:
			if rand.Float64() < *typingRate {
				_ = send("TYPING_START", map[string]string{"channelId": *channelID})
			}
			if rand.Float64() < *presenceRate {
				_ = send("PRESENCE_UPDATE", map[string]string{"status": statuses[rand.IntN(len(statuses))]})
			}
		}
	}
}

func signToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*jwtSecret))
}

func printStats(st *stats) {
	fmt.Println("\n📊 Final Statistics:")
	fmt.Printf("   Failed connects: %d\n", st.failed.Load())
	fmt.Printf("   Frames sent: %d\n", st.sent.Load())
	fmt.Printf("   Frames received: %d\n", st.received.Load())
	fmt.Printf("   Errors received: %d\n", st.errors.Load())
}
