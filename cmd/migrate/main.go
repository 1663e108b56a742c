package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ignite/engagement-tracker/internal/config"
	"github.com/ignite/engagement-tracker/internal/repository/postgres"
)

// Usage: migrate [--config path] [--list] [extra-migrations-dir]
//
// The embedded contacts/tracking_records schema is always applied first.
// Any *.sql files in the optional directory run afterwards in name order,
// each in its own transaction.
func main() {
	opts := parseArgs(os.Args[1:])
	if err := run(opts.configPath, opts.dir, opts.listOnly); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	configPath string
	dir        string
	listOnly   bool
}

func parseArgs(args []string) options {
	opts := options{configPath: "config/config.yaml"}
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--list":
			opts.listOnly = true
		case a == "--config" && i+1 < len(args):
			i++
			opts.configPath = args[i]
		default:
			opts.dir = a
		}
	}
	return opts
}

func run(configPath, dir string, listOnly bool) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url (or DATABASE_URL) is required")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, postgres.BuildDSN(cfg.Database.URL, cfg.Database.RequireTLS), postgres.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if listOnly {
		return listTables(ctx, db)
	}

	fmt.Print("  schema.sql (embedded) ... ")
	if err := postgres.Migrate(ctx, db); err != nil {
		fmt.Println("ERROR")
		return err
	}
	fmt.Println("OK")

	if dir != "" {
		okCount, errCount, err := applyDir(ctx, db, dir)
		if err != nil {
			return err
		}
		log.Printf("Done: %d OK, %d errors", okCount, errCount)
		if errCount > 0 {
			return fmt.Errorf("%d migration(s) failed", errCount)
		}
	}
	log.Println("Migrations complete")
	return nil
}

func listTables(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename IN ('contacts', 'tracking_records') ORDER BY tablename")
	if err != nil {
		return err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d tables\n", n)
	return rows.Err()
}

func applyDir(ctx context.Context, db *sql.DB, dir string) (okCount, errCount int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return okCount, errCount, fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.ExecContext(ctx, content); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("COMMIT ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Println("OK")
		okCount++
	}
	return okCount, errCount, nil
}
