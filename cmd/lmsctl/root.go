package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	database "sekolahku_backend/internals/databases"
)

var rootCmd = &cobra.Command{
	Use:           "lmsctl",
	Short:         "Operator tool untuk backend materi sekolahku",
	Long:          "lmsctl: migrate skema, seed materi dari YAML, hitung ulang progress, token dev, dan sesi baca.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configs.LoadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "DSN PostgreSQL (default: dirakit dari ENV DB_*)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(readCmd)
}

// openDB memakai --dsn kalau diisi, selain itu DSN dari ENV.
func openDB(cmd *cobra.Command) (*gorm.DB, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = database.DSN()
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Println("[INFO] DB connected.")
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
