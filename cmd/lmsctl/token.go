package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	authMiddleware "sekolahku_backend/internals/middlewares/auth"
)

// token: access token lokal untuk uji API tanpa layanan akun.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Terbitkan access token dev (HS256, JWT_SECRET)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		kelas, _ := cmd.Flags().GetString("kelas")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if configs.JWTSecret == "" {
			return errors.New("JWT_SECRET belum diset")
		}
		if !constants.IsKnownRole(role) {
			return fmt.Errorf("role %q tidak dikenal (admin|guru|siswa)", role)
		}
		userID, err := uuid.Parse(rawID)
		if err != nil {
			return fmt.Errorf("--user bukan UUID valid: %w", err)
		}

		tok, err := authMiddleware.IssueToken(configs.JWTSecret, userID, role, kelas, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "UUID user (wajib)")
	tokenCmd.Flags().String("role", constants.RoleStudent, "admin|guru|siswa")
	tokenCmd.Flags().String("kelas", "", "Kelas siswa (opsional)")
	tokenCmd.Flags().Duration("ttl", 12*time.Hour, "Masa berlaku token")
	_ = tokenCmd.MarkFlagRequired("user")
}
