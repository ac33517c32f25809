package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := "./data/tracker.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	fmt.Printf("Verifying database at: %s\n", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	// 1. All expected tables present
	fmt.Println("\n1. Verifying tables...")
	for _, table := range []string{"users", "accounts", "trades", "diary_entries", "insights", "user_settings"} {
		rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		if rows.Next() {
			fmt.Printf("✓ %s table exists\n", table)
		} else {
			fmt.Printf("❌ %s table MISSING\n", table)
		}
		rows.Close()
	}

	// 2. Risk columns added by later migrations
	fmt.Println("\n2. Verifying risk columns on accounts...")
	var sqlSchema string
	err = db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='accounts'").Scan(&sqlSchema)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	for _, col := range []string{"status", "daily_loss_limit", "max_drawdown", "profit_target"} {
		if strings.Contains(sqlSchema, col) {
			fmt.Printf("✓ %s column exists\n", col)
		} else {
			fmt.Printf("❌ %s column MISSING\n", col)
		}
	}

	// 3. Trades link back to accounts
	fmt.Println("\n3. Verifying account_id column on trades...")
	err = db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='trades'").Scan(&sqlSchema)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if strings.Contains(sqlSchema, "account_id") {
		fmt.Println("✓ account_id column exists")
	} else {
		fmt.Println("❌ account_id column MISSING")
	}
}
