// cmd/tools/template-seeder/main.go
//
// Seeds or syncs the notification_templates table from a catalog file:
//
//	template-seeder validate -path configs/template-catalog.json
//	template-seeder sync     -path configs/template-catalog.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"notification-engine/internal/common/config"
	"notification-engine/internal/common/database"
	"notification-engine/internal/models"
	"notification-engine/internal/store"
	"notification-engine/pkg/catalog"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)

	validatePath := validateCmd.String("path", "configs/template-catalog.json", "Path to catalog file")
	syncPath := syncCmd.String("path", "configs/template-catalog.json", "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := catalog.LoadCatalog(*validatePath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog valid: %d templates, version %s\n", len(cat.Templates), cat.Version)

	case "sync":
		syncCmd.Parse(os.Args[2:])
		if err := sync(*syncPath); err != nil {
			fmt.Printf("Sync failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		help()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		help()
		os.Exit(1)
	}
}

func sync(path string) error {
	cat, err := catalog.LoadCatalog(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	templates := store.NewTemplateStore(pg.DB)
	for _, entry := range cat.Templates {
		err := templates.Upsert(ctx, &models.NotificationTemplate{
			Name:        entry.Name,
			Description: entry.Description,
			Type:        models.TemplateType(entry.Type),
			Subject:     entry.Subject,
			Body:        entry.Body,
			HTMLBody:    entry.HTMLBody,
			Active:      entry.Active,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Synced template: %s\n", entry.Name)
	}

	fmt.Printf("Done: %d templates synced.\n", len(cat.Templates))
	return nil
}

func help() {
	fmt.Println("Usage: template-seeder <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Validate a template catalog file")
	fmt.Println("  sync      Upsert catalog templates into the database")
	fmt.Println("  help      Show this help")
}
