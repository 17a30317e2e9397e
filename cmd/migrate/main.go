package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/database/migrations"
	"ms-scheduling/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	action := flag.String("action", "up", "up, down, to or version")
	target := flag.Uint("version", migrations.SchemaVersion, "target version for -action=to")
	seed := flag.Bool("seed", true, "apply lookup seed migrations on up")
	flag.Parse()

	log := logger.NewServiceLogger("migrate")
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(db, migrations.MigrateOptions{SeedData: *seed}, log)
	defer runner.Close()

	switch *action {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*target)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = runner.Version()
		if err == nil {
			log.Info("DATABASE", fmt.Sprintf("Schema version %d (dirty=%t)", version, dirty))
		}
	default:
		log.Error("APP", fmt.Sprintf("unknown action %q", *action))
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("DATABASE", err.Error())
		os.Exit(1)
	}
	log.Info("DATABASE", fmt.Sprintf("%s complete", *action))
}
