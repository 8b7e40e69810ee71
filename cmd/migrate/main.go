// Command migrate applies database schema migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		databaseURL = flag.String("database", os.Getenv("AUCTION_DATABASE_URL"), "database URL")
		source      = flag.String("source", "file://migrations", "migration source")
	)
	flag.Parse()

	if *databaseURL == "" {
		return fmt.Errorf("database URL is required (-database or AUCTION_DATABASE_URL)")
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	m, err := migrate.New(*source, *databaseURL)
	if err != nil {
		return fmt.Errorf("initializing migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "drop":
		err = m.Drop()
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			return fmt.Errorf("reading version: %w", verr)
		}
		fmt.Printf("version: %d dirty: %v\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down, drop or version)", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return nil
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", command, err)
	}

	fmt.Printf("%s complete\n", command)
	return nil
}
