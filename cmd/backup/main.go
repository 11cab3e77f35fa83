package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"firesafety/internal/config"
	"firesafety/internal/database"
	"firesafety/internal/logger"
	"firesafety/internal/repository"
	"firesafety/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, database.EmbeddedMigrations()); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	backupService := service.NewBackupService(repository.NewSQLStore(db), log)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, log, backupService, db, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create output directory", "error", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		log.Fatal("Failed to create output file", "error", err)
	}
	defer file.Close()

	log.Info("Exporting database", "path", outputPath)
	if _, err := backupService.Export(ctx, file); err != nil {
		log.Fatal("Export failed", "error", err)
	}

	if fileInfo, err := file.Stat(); err == nil {
		log.Info("Export complete", "size_mb", fmt.Sprintf("%.2f", float64(fileInfo.Size())/1024/1024))
	}
}

func handleImport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	file, err := os.Open(inputPath)
	if err != nil {
		log.Fatal("Failed to open input file", "path", inputPath, "error", err)
	}
	defer file.Close()

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("Import cancelled")
			return
		}

		log.Info("Clearing existing data...")
		if err := clearDatabase(ctx, log, db); err != nil {
			log.Fatal("Failed to clear database", "error", err)
		}
	}

	log.Info("Importing database", "path", inputPath)
	if _, err := backupService.Import(ctx, file); err != nil {
		log.Fatal("Import failed", "error", err)
	}

	log.Info("Import complete")
}

func clearDatabase(ctx context.Context, log *logger.Logger, db *database.DB) error {
	// Delete in reverse order of dependencies
	tables := []string{
		"user_achievements",
		"progress",
		"sessions",
		"achievements",
		"game_modules",
		"users",
	}

	return db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Info("Cleared table", "table", table)
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("Fire Safety Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Imports require an empty database unless -clear is given.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./firesafety.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
