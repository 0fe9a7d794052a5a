package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gogobus/booking-gateway/internal/config"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// gatewayTables are every table the gateway owns
var gatewayTables = []string{
	"audit_logs",
	"checkout_rate_limits",
	"gateway_sessions",
	"session_values",
}

func main() {
	dbURLFlag := flag.String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	sessionsOnly := flag.Bool("sessions-only", false, "only clear session state, keep audit logs")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := *dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := gatewayTables
	if *sessionsOnly {
		tables = []string{"gateway_sessions", "session_values"}
	}

	fmt.Println("Connected to database. Truncating tables...")

	for _, t := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", t)); err != nil {
			log.Fatalf("failed to truncate %s: %v", t, err)
		}
	}

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
