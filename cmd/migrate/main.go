package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"stabledesk/internal/config"
	"stabledesk/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const migrationsDir = "internal/database/migrations"

const usage = `usage: migrate -command <up|down|version|force|create> [flags]

  up        apply pending migrations (-steps limits how many)
  down      roll back one migration (-steps rolls back more)
  version   print the applied version and dirty flag
  force     mark -version as applied without running it
  create    write empty up/down files named after -name

`

func main() {
	command := flag.String("command", "", "up, down, version, force or create")
	steps := flag.Int("steps", 0, "number of migrations for up/down")
	version := flag.Int("version", 0, "version for force")
	name := flag.String("name", "", "file name suffix for create")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var err error
	switch *command {
	case "":
		flag.Usage()
		os.Exit(2)
	case "create":
		err = createFiles(migrationsDir, *name)
	default:
		err = withMigrator(func(m *migrate.Migrate) error {
			return apply(m, *command, *steps, *version)
		})
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", *command, err)
	}
}

func withMigrator(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("close migrator: %v", errors.Join(srcErr, dbErr))
		}
	}()

	return fn(m)
}

func apply(m *migrate.Migrate, command string, steps, version int) error {
	switch command {
	case "up":
		if steps > 0 {
			return report(m.Steps(steps), "up to date", "applied")
		}
		return report(m.Up(), "up to date", "applied")
	case "down":
		if steps <= 0 {
			steps = 1
		}
		return report(m.Steps(-steps), "nothing to roll back", "rolled back")
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	case "force":
		if version <= 0 {
			return errors.New("-version is required")
		}
		if err := m.Force(version); err != nil {
			return err
		}
		fmt.Printf("forced version %d\n", version)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func report(err error, noChange, done string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println(noChange)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

func createFiles(dir, name string) error {
	if name == "" {
		return errors.New("-name is required")
	}
	next := nextMigrationNumber(dir)
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(dir, fmt.Sprintf("%06d_%s.%s.sql", next, name, direction))
		if err := os.WriteFile(path, []byte("-- "+name+" ("+direction+")\n"), 0o644); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func nextMigrationNumber(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	highest := 0
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "%d_", &n); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}
