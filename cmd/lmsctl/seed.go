package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sekolahku_backend/internals/seeds"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert mapel, profil, dan hierarki materi dari file YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		dry, _ := cmd.Flags().GetBool("dry-run")

		if dry {
			fx, err := seeds.LoadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d subjects, %d profiles, %d materials\n",
				len(fx.Subjects), len(fx.Profiles), len(fx.Materials))
			return nil
		}

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		res, err := seeds.RunFile(db, path)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.String())
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "seed.yaml", "Path file seed YAML")
	seedCmd.Flags().Bool("dry-run", false, "Validasi file tanpa menulis ke DB")
}
