package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingoquest/internal/cache"
	"lingoquest/internal/config"
	"lingoquest/internal/database"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
	"lingoquest/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	deleteCmd := flag.NewFlagSet("delete-language", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: content_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path, .json or .xlsx (required)")
	importClear := importCmd.Bool("clear", false, "Delete all existing content before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	// Delete flags
	deleteCode := deleteCmd.String("code", "", "Language code to delete (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		withBackupService(ctx, cfg, log, func(svc *service.BackupService) error {
			return handleExport(ctx, svc, log, *exportOutput)
		})

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		withBackupService(ctx, cfg, log, func(svc *service.BackupService) error {
			return handleImport(ctx, svc, log, *importInput, *importClear, *importYes)
		})

	case "delete-language":
		deleteCmd.Parse(os.Args[2:])
		if *deleteCode == "" {
			fmt.Println("Error: -code flag is required")
			deleteCmd.PrintDefaults()
			os.Exit(1)
		}
		withBackupService(ctx, cfg, log, func(svc *service.BackupService) error {
			return svc.DeleteLanguage(ctx, *deleteCode)
		})

	default:
		printUsage()
		os.Exit(1)
	}
}

// withBackupService opens the database and cache, runs fn and exits non-zero on failure
func withBackupService(ctx context.Context, cfg *config.Config, log *logger.Logger, fn func(svc *service.BackupService) error) {
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, database.MigrationSource(cfg.MigrationsPath)); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	// A configured cache is flushed after every change
	var contentCache cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, cached content will expire on its own", "error", err)
		} else {
			contentCache = redisCache
		}
	}
	defer contentCache.Close()

	contentRepo := repository.NewContentRepository(db)
	reader := service.NewContentService(contentRepo, contentCache, cfg.ContentCacheTTL, log)
	svc := service.NewBackupService(db, contentRepo, reader, log)

	if err := fn(svc); err != nil {
		var importErr *service.ImportError
		if errors.As(err, &importErr) {
			for _, problem := range importErr.Problems {
				fmt.Fprintln(os.Stderr, "  -", problem)
			}
		}
		log.Fatal("command failed", "error", err)
	}
}

func handleExport(ctx context.Context, svc *service.BackupService, log *logger.Logger, outputPath string) error {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("content_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := svc.Export(ctx, file)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err == nil {
		log.Info("export complete", "file", outputPath, "languages", len(backup.Languages), "bytes", info.Size())
	}
	return nil
}

func handleImport(ctx context.Context, svc *service.BackupService, log *logger.Logger, inputPath string, clearData, skipConfirm bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	backup, err := decodeFile(file, inputPath)
	if err != nil {
		return err
	}

	if clearData && !skipConfirm {
		fmt.Print("WARNING: This will delete all existing content and the progress recorded against it. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return nil
		}
	}

	result, err := svc.Import(ctx, backup, clearData)
	if err != nil {
		return err
	}
	log.Info("import complete",
		"languages_created", result.LanguagesCreated,
		"languages_reused", result.LanguagesReused,
		"exercises", result.Exercises)
	return nil
}

func decodeFile(r io.Reader, path string) (*service.ContentBackup, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return service.DecodeXLSX(r)
	case ".json":
		return service.DecodeJSON(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .json or .xlsx", filepath.Ext(path))
	}
}

func printUsage() {
	fmt.Println("LingoQuest Content Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  contentctl export [options]             Export the content tree to JSON")
	fmt.Println("  contentctl import [options]             Import a content tree from JSON or XLSX")
	fmt.Println("  contentctl delete-language -code <code> Delete a language and everything below it")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: content_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path, .json or .xlsx (required)")
	fmt.Println("  -clear            Delete all existing content before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation with -clear")
	fmt.Println()
	fmt.Println("XLSX Format:")
	fmt.Println("  Sheet \"Exercises\", header in row 1, columns A..K:")
	fmt.Println("  language_code, language_name, module_order, module_title, module_description,")
	fmt.Println("  lesson_order, lesson_title, xp_reward, exercise_type, question, answer")
	fmt.Println("  Column L may hold the exercise options as a JSON object.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, pgx or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./lingoquest.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  REDIS_URL        Content cache to flush after changes (optional)")
}
