package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"care-session-service/internal/config"
	"care-session-service/internal/repository"
)

// Applies a SQL migration file. With a schema argument the schema is created
// first and the statements run inside it, so one tenant_schema.sql provisions
// any number of tenants.
//
//	apply-migration migrations/public_registry.sql
//	apply-migration migrations/tenant_schema.sql org_acme
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <migration_file.sql> [schema]", os.Args[0])
	}
	migrationFile := os.Args[1]

	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)

	if len(os.Args) > 2 {
		schema, err := repository.NewSchema(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid schema name: %v", err)
		}
		quoted := pq.QuoteIdentifier(string(schema))
		if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + quoted); err != nil {
			log.Fatalf("Failed to create schema %s: %v", schema, err)
		}
		if _, err := db.Exec("SET search_path TO " + quoted); err != nil {
			log.Fatalf("Failed to set search_path: %v", err)
		}
		fmt.Printf("Applying into schema: %s\n", schema)
	}

	statements := strings.Split(string(sqlContent), ";")
	applied := 0
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || isCommentOnly(stmt) {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt)
		}
		applied++
	}
	fmt.Printf("Migration completed: %d statements applied\n", applied)
}

func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
