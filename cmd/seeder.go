package cmd

import (
	"fmt"
	"log"

	"github.com/frahmantamala/subscription-billing/internal/plan"
	"github.com/spf13/cobra"
)

// seedCmd mirrors the in-code plan catalog into the plans reference table
// so reporting queries can join against it. The catalog in code stays the
// source of truth; re-running the seed converges the table.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the plan catalog",
	Long:  `Seed the plans reference table from the in-code catalog. Safe to run repeatedly.`,
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

		for _, p := range plan.All() {
			_, err := db.Exec(`
				INSERT INTO plans (id, tier, duration_unit, duration_count, price_minor_units, currency, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				ON CONFLICT (id) DO UPDATE SET
					tier = EXCLUDED.tier,
					duration_unit = EXCLUDED.duration_unit,
					duration_count = EXCLUDED.duration_count,
					price_minor_units = EXCLUDED.price_minor_units,
					currency = EXCLUDED.currency,
					updated_at = now()`,
				p.ID, p.Tier, string(p.DurationUnit), p.DurationCount, p.PriceMinorUnits, p.Currency,
			)
			if err != nil {
				log.Fatalf("failed to seed plan %s: %v", p.ID, err)
			}
			fmt.Println("Seeded plan:", p.ID)
		}

		fmt.Println("Plan catalog seeded successfully")
	},
}
