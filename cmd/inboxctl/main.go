package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/matheus3301/inboxd/internal/config"
	"github.com/matheus3301/inboxd/internal/home"
	"github.com/matheus3301/inboxd/internal/lock"
	"github.com/matheus3301/inboxd/internal/store"
)

func main() {
	dataFlag := flag.String("data", "", "data directory (default ~/.inboxd)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	dataDir := *dataFlag
	if dataDir == "" {
		dataDir = home.Default()
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		cmdStatus(dataDir, *jsonFlag)
	case "seed":
		cmdSeed(dataDir)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: inboxctl [--data <dir>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status    Show daemon health and store counts")
	fmt.Fprintln(os.Stderr, "  seed      Load demo conversations (daemon must be stopped)")
}

func cmdStatus(dataDir string, jsonOut bool) {
	cfg, err := config.Load(home.ConfigPath(dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get("http://" + cfg.ListenAddr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon at %s: %v\n", cfg.ListenAddr, err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	var health struct {
		Success bool `json:"success"`
		Data    struct {
			Status        string `json:"status"`
			Conversations int64  `json:"conversations"`
			Messages      int64  `json:"messages"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid health response: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		out, _ := json.MarshalIndent(health.Data, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("Status:        %s\n", health.Data.Status)
	fmt.Printf("Conversations: %d\n", health.Data.Conversations)
	fmt.Printf("Messages:      %d\n", health.Data.Messages)
}

type seedMessage struct {
	from, to, text string
	at             time.Time
	status         store.Status
}

type seedConversation struct {
	name, phone string
	messages    []seedMessage
}

// cmdSeed loads demo contacts and conversations into the store. It takes
// the data dir lock, so a running daemon must be stopped first.
func cmdSeed(dataDir string) {
	cfg, err := config.Load(home.ConfigPath(dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	business := cfg.BusinessNumber

	seeds := []seedConversation{
		{
			name: "Ravi Kumar", phone: "919937320320",
			messages: []seedMessage{
				{
					from: "919937320320", to: business,
					text:   "Hi, I'd like to know more about your services.",
					at:     time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC),
					status: store.StatusRead,
				},
				{
					from: business, to: "919937320320",
					text:   "Hi Ravi! Sure, I'd be happy to help you with that. Could you tell me what you're looking for?",
					at:     time.Date(2025, 8, 6, 12, 0, 20, 0, time.UTC),
					status: store.StatusRead,
				},
			},
		},
		{
			name: "Neha Joshi", phone: "929967673820",
			messages: []seedMessage{
				{
					from: "929967673820", to: business,
					text:   "Hi, I saw your ad. Can you share more details?",
					at:     time.Date(2025, 8, 6, 12, 16, 40, 0, time.UTC),
					status: store.StatusRead,
				},
				{
					from: business, to: "929967673820",
					text:   "Hi Neha! Absolutely. We offer curated home decor pieces. Are you looking for nameplates, wall art, or something else?",
					at:     time.Date(2025, 8, 6, 12, 17, 10, 0, time.UTC),
					status: store.StatusDelivered,
				},
			},
		},
	}

	if err := home.EnsureDir(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	lk, err := lock.Acquire(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(home.DBPath(dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, seed := range seeds {
		if err := seedOne(db, business, seed); err != nil {
			fmt.Fprintf(os.Stderr, "error seeding %s: %v\n", seed.name, err)
			os.Exit(1)
		}
		fmt.Printf("seeded conversation with %s (%d messages)\n", seed.name, len(seed.messages))
	}
}

func seedOne(db *store.DB, business string, seed seedConversation) error {
	if err := db.UpsertContact(&store.Contact{
		Phone:      seed.phone,
		Name:       seed.name,
		IsActive:   true,
		LastSeenAt: time.Now().UnixMilli(),
	}); err != nil {
		return err
	}

	conv, err := db.FindOrCreateConversation(business, seed.phone)
	if err != nil {
		return err
	}

	for _, sm := range seed.messages {
		direction := store.DirectionIncoming
		if sm.from == business {
			direction = store.DirectionOutgoing
		}
		msg, err := db.AppendMessage(&store.Message{
			ConversationID: conv.ID,
			Sender:         sm.from,
			Recipient:      sm.to,
			Body:           sm.text,
			Direction:      direction,
			Status:         sm.status,
			CreatedAt:      sm.at.UnixMilli(),
		})
		if err != nil {
			return err
		}
		// Append assigns the lifecycle starting status; walk the message
		// forward to the seeded state.
		for _, next := range []store.Status{store.StatusDelivered, store.StatusRead} {
			if msg.Status == sm.status {
				break
			}
			if msg, err = db.SetStatus(msg.ID, next); err != nil {
				return err
			}
		}
		if err := db.RecordActivity(conv.ID, msg.ID, msg.Body, msg.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
