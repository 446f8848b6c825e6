package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"expense_approvals", "expense_attachments", "expenses", "workplace_limits", "invitations", "workplace_members", "workplaces", "expense_categories"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		categories := []struct {
			Name  string
			Color string
		}{
			{"Travel", "#1E88E5"},
			{"Meals", "#43A047"},
			{"Office Supplies", "#FB8C00"},
			{"Training", "#8E24AA"},
		}

		for _, c := range categories {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM expense_categories WHERE name = $1", c.Name).Scan(&exists); err == nil {
				continue
			}
			_, err := db.Exec(
				"INSERT INTO expense_categories (id, name, color, is_active, created_at, created_by) VALUES ($1, $2, $3, true, now(), 'seed')",
				uuid.New(), c.Name, c.Color)
			if err != nil {
				log.Fatalf("failed to insert category %s: %v", c.Name, err)
			}
			fmt.Println("Seeded category:", c.Name)
		}

		workplaceName := "Head Office"
		var workplaceID uuid.UUID
		err = db.QueryRow("SELECT id FROM workplaces WHERE name = $1", workplaceName).Scan(&workplaceID)
		if err != nil {
			workplaceID = uuid.New()
			_, err = db.Exec(
				"INSERT INTO workplaces (id, name, code, is_active, created_at, created_by) VALUES ($1, $2, 'HQ', true, now(), 'seed')",
				workplaceID, workplaceName)
			if err != nil {
				log.Fatalf("failed to insert workplace: %v", err)
			}
			fmt.Println("Seeded workplace:", workplaceName)
		}

		managerUserID := "seed-manager"
		var exists int
		if err := db.QueryRow("SELECT 1 FROM workplace_members WHERE workplace_id = $1 AND user_id = $2", workplaceID, managerUserID).Scan(&exists); err != nil {
			_, err = db.Exec(
				"INSERT INTO workplace_members (id, workplace_id, user_id, position_name, is_manager, created_at, created_by) VALUES ($1, $2, $3, 'Office Manager', true, now(), 'seed')",
				uuid.New(), workplaceID, managerUserID)
			if err != nil {
				log.Fatalf("failed to insert manager member: %v", err)
			}
			fmt.Println("Seeded manager member:", managerUserID)
		}

		if err := db.QueryRow("SELECT 1 FROM workplace_limits WHERE workplace_id = $1", workplaceID).Scan(&exists); err != nil {
			_, err = db.Exec(
				`INSERT INTO workplace_limits (id, workplace_id, category_id, period_from, period_to, limit_amount, currency, is_active, created_at, created_by)
				 VALUES ($1, $2, NULL, date_trunc('month', now())::date, (date_trunc('month', now()) + interval '1 month - 1 day')::date, 5000000, 'CZK', true, now(), 'seed')`,
				uuid.New(), workplaceID)
			if err != nil {
				log.Fatalf("failed to insert workplace limit: %v", err)
			}
			fmt.Println("Seeded monthly limit for:", workplaceName)
		}

		fmt.Println("Seeding complete")
	},
}
