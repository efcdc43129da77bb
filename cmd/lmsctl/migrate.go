package main

import (
	"github.com/spf13/cobra"

	database "sekolahku_backend/internals/databases"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "AutoMigrate semua tabel materi dan progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)
		return database.AutoMigrate(db)
	},
}
