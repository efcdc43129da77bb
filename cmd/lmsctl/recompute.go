package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Hitung ulang agregat material_progress dari ledger",
	Long: "Membangun ulang material_progress dari sub_chapter_progress. " +
		"Tanpa --material semua baris agregat dihitung ulang.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("material")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		agg := psvc.Aggregator{}
		now := time.Now()

		if raw == "" {
			n, err := agg.RecomputeAll(db, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d rows\n", n)
			return nil
		}

		materialID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("--material bukan UUID valid: %w", err)
		}
		var students []uuid.UUID
		err = db.Transaction(func(tx *gorm.DB) error {
			var e error
			students, e = agg.RecomputeMaterial(tx, materialID, now)
			return e
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "material %s: recomputed %d students\n", materialID, len(students))
		return nil
	},
}

func init() {
	recomputeCmd.Flags().String("material", "", "Batasi ke satu material_id")
}
