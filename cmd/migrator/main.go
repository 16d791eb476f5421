package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/linemk/grocery-shop/internal/config"
)

const migrationTableName = "migrations"

func main() {
	_ = godotenv.Load()

	// путь к конфигу: флаг -config или CONFIG_PATH
	cfg := config.MustLoad()

	migrationsPath := GetEnv("MIGRATIONS_PATH", cfg.Migrations.Path)

	// Создаем объект мигратора
	m, err := migrate.New(
		"file://"+migrationsPath,
		cfg.Database.DSN("x-migrations-table="+migrationTableName),
	)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to apply")
		} else {
			log.Fatalf("migration failed: %v", err)
		}
	} else {
		log.Println("Migrations applied successfully")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := printTables(db); err != nil {
		log.Fatalf("failed to list tables: %v", err)
	}
}

func printTables(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		fmt.Println(" -", tableName)
	}
	return rows.Err()
}

func GetEnv(key, defaultValue string) string {
	if value, exists := lookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// Обертка для os.LookupEnv, чтобы можно было легко подменить в тестах
func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
