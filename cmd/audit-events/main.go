package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gogobus/booking-gateway/internal/config"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

func main() {
	sessionFlag := flag.StringP("session", "s", "", "gateway session id to inspect")
	limit := flag.IntP("limit", "n", 20, "maximum number of events")
	flag.Parse()

	sessionID, err := uuid.Parse(*sessionFlag)
	if err != nil {
		log.Fatalf("--session must be a session UUID: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required to read audit logs")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	auditService := services.NewAuditService(db)
	events, err := auditService.GetRecentEvents(sessionID, *limit)
	if err != nil {
		log.Fatalf("Failed to read audit events: %v", err)
	}

	fmt.Printf("=== %d audit events for session %s ===\n", len(events), sessionID)
	for _, event := range events {
		details, _ := json.Marshal(event["details"])
		fmt.Printf("- %v | %v %v | %v | %s\n", event["created_at"], event["action"], event["entity_id"], event["ip_address"], details)
	}
}
