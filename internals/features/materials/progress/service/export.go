package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"sekolahku_backend/internals/features/materials/progress/dto"
	"sekolahku_backend/internals/helpers/dbtime"
)

const (
	sheetSummary   = "Ringkasan"
	sheetBreakdown = "Per Materi"
	exportTimeFmt  = "2006-01-02 15:04"
)

// ExportOversight merender laporan oversight seorang siswa ke workbook xlsx.
// Waktu ditulis di timezone loc.
func (q *Query) ExportOversight(ctx context.Context, studentID uuid.UUID, loc *time.Location) ([]byte, *dto.OversightReport, error) {
	rep, err := q.GetStudentProgressForOversight(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	b, err := RenderOversightXLSX(rep, loc)
	if err != nil {
		return nil, nil, err
	}
	return b, rep, nil
}

func RenderOversightXLSX(rep *dto.OversightReport, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetBreakdown); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("style: %w", err)
	}

	kelas := "-"
	if rep.ClassName != nil {
		kelas = *rep.ClassName
	}
	lastAt := lastActivity(rep)
	last := dbtime.Format(&lastAt, loc, exportTimeFmt)
	summary := [][2]any{
		{"Nama", rep.StudentName},
		{"ID Siswa", rep.StudentID.String()},
		{"Kelas", kelas},
		{"Materi Diakses", rep.TotalMaterialsAccessible},
		{"Materi Dibaca", rep.MaterialsTouched},
		{"Materi Selesai", rep.MaterialsCompleted},
		{"Rata-rata Progress (%)", rep.AveragePercentage},
		{"Aktivitas Terakhir", last},
	}
	for i, kv := range summary {
		row := i + 1
		if err := f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), kv[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), kv[1]); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return nil, fmt.Errorf("style summary: %w", err)
	}
	if err := setWidths(f, sheetSummary, map[string]float64{"A": 26, "B": 40}); err != nil {
		return nil, err
	}

	header := []any{"Materi", "Status", "Sub Bab Selesai", "Total Sub Bab", "Progress (%)", "Terakhir Dibaca", "Selesai Pada"}
	if err := f.SetSheetRow(sheetBreakdown, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetBreakdown, "A1", "G1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, b := range rep.PerMaterialBreakdown {
		status := "Belum dibaca"
		switch {
		case b.Percentage == 100:
			status = "Selesai"
		case b.Touched:
			status = "Sedang dibaca"
		}
		lastRead := dbtime.Format(b.LastReadAt, loc, exportTimeFmt)
		doneAt := dbtime.Format(b.CompletedAt, loc, exportTimeFmt)
		row := []any{b.MaterialTitle, status, b.CompletedSubChapters, b.TotalSubChapters, b.Percentage, lastRead, doneAt}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetBreakdown, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := setWidths(f, sheetBreakdown, map[string]float64{"A": 40, "B:G": 16}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// setWidths: key "A" untuk satu kolom, "B:G" untuk rentang.
func setWidths(f *excelize.File, sheet string, widths map[string]float64) error {
	for cols, w := range widths {
		from, to, ok := strings.Cut(cols, ":")
		if !ok {
			to = from
		}
		if err := f.SetColWidth(sheet, from, to, w); err != nil {
			return fmt.Errorf("col width %s!%s: %w", sheet, cols, err)
		}
	}
	return nil
}
