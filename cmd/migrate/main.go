// Command migrate runs the SQL schema migrations against the configured database.
//
// Usage:
//
//	migrate up | down [n] | force <version> | version
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/config"
	"github.com/yourusername/animemaster-api/internal/pkg/logger"
	"github.com/yourusername/animemaster-api/pkg/database"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "path to the config file")
	flag.Parse()

	log := logger.New("info", false)

	if err := run(*configPath, flag.Args(), log); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func run(configPath string, args []string, log zerolog.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command: up | down [n] | force <version> | version")
	}

	dbCfg, err := config.LoadDatabase(configPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dbCfg.PostgresURL())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := database.NewMigrator(db, dbCfg.MigrationsPath)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}
		err = m.Steps(-steps)
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		// Clears a dirty state left by a failed migration.
		err = m.Force(version)
	case "version":
		version, dirty, verErr := m.Version()
		if errors.Is(verErr, migrate.ErrNilVersion) {
			log.Info().Msg("no migrations applied")
			return nil
		}
		if verErr != nil {
			return verErr
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current schema version")
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("no change")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("command", args[0]).Msg("done")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
