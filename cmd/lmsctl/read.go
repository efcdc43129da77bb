package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	hsvc "sekolahku_backend/internals/features/materials/hierarchy/service"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	"sekolahku_backend/internals/features/materials/reading"
)

// read: jalankan sesi baca dari terminal. Dengan --api sesi memakai HTTP API
// (identitas dari --token); tanpa --api langsung ke DB atas nama --student.
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Jalankan sesi baca satu materi dan tandai sub bab selesai berurutan",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawMaterial, _ := cmd.Flags().GetString("material")
		apiURL, _ := cmd.Flags().GetString("api")
		token, _ := cmd.Flags().GetString("token")
		rawStudent, _ := cmd.Flags().GetString("student")
		kelas, _ := cmd.Flags().GetString("kelas")
		steps, _ := cmd.Flags().GetInt("steps")

		materialID, err := uuid.Parse(rawMaterial)
		if err != nil {
			return fmt.Errorf("--material bukan UUID valid: %w", err)
		}

		var (
			src       reading.Source
			studentID uuid.UUID
		)
		if apiURL != "" {
			if token == "" {
				return errors.New("--token wajib diisi bersama --api")
			}
			src = reading.NewClient(apiURL, token)
		} else {
			studentID, err = uuid.Parse(rawStudent)
			if err != nil {
				return fmt.Errorf("--student bukan UUID valid: %w", err)
			}
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer closeDB(db)

			ss := reading.ServiceSource{
				Hierarchy: hsvc.New(db, nil),
				Ledger:    psvc.NewLedger(db, nil),
			}
			if kelas != "" {
				ss.ClassName = &kelas
			}
			src = ss
		}

		return runReading(cmd.Context(), cmd.OutOrStdout(), reading.NewSession(src, studentID), materialID, steps)
	},
}

// runReading memuat materi lalu maju paling banyak steps sub bab (0 = sampai
// materi selesai).
func runReading(ctx context.Context, out io.Writer, s *reading.Session, materialID uuid.UUID, steps int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Load(ctx, materialID); err != nil {
		return err
	}
	fmt.Fprintf(out, "materi %s dimuat, progress lokal %d%%\n", materialID, s.LocalProgress())

	for i := 0; steps == 0 || i < steps; i++ {
		cur, ok := s.Current()
		if !ok {
			break
		}
		mp, err := s.MarkCompleteAndAdvance(ctx)
		if err != nil {
			return fmt.Errorf("tandai %q: %w", cur.SubChapterTitle, err)
		}
		fmt.Fprintf(out, "selesai: %-40s %3d%% (%d/%d)\n",
			cur.SubChapterTitle, mp.Percentage, mp.CompletedSubChapters, mp.TotalSubChapters)
	}

	fmt.Fprintf(out, "state: %s\n", s.State())
	return nil
}

func init() {
	readCmd.Flags().String("material", "", "material_id (wajib)")
	readCmd.Flags().String("api", "", "Base URL API, mis. http://localhost:3000")
	readCmd.Flags().String("token", "", "Bearer token siswa (mode --api)")
	readCmd.Flags().String("student", "", "UUID siswa (mode DB)")
	readCmd.Flags().String("kelas", "", "Kelas siswa (mode DB)")
	readCmd.Flags().Int("steps", 0, "Jumlah sub bab yang ditandai (0 = semua)")
	_ = readCmd.MarkFlagRequired("material")
}
