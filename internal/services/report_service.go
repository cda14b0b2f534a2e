package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// reportTopN bounds the download report rows per category.
const reportTopN = 100

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

// UsersReport renders every account into an XLSX workbook for the admin
// console.
func (s *reportService) UsersReport(ctx context.Context) (io.Reader, error) {
	users, _, err := s.repo.User().List(ctx, repositories.UserFilters{Limit: 100})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Users"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Student ID", "Username", "Email", "Full Name", "Role", "Fee Paid", "Registered"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for {
		for i := range users {
			u := &users[i]
			values := []interface{}{
				u.ID, u.StudentID, u.Username, u.Email, u.FullName,
				string(u.Role), u.FeePaid, u.CreatedAt.Format(time.RFC3339),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
		if len(users) < 100 {
			break
		}
		users, _, err = s.repo.User().List(ctx, repositories.UserFilters{Limit: 100, Offset: row - 2})
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render users report: %w", err)
	}
	s.logger.Info("users report generated", "rows", row-2)
	return buf, nil
}

// DownloadsReport renders the most-downloaded exams and cheat sheets into
// one workbook, a sheet per category.
func (s *reportService) DownloadsReport(ctx context.Context) (io.Reader, error) {
	f := excelize.NewFile()
	defer f.Close()

	exams, err := s.repo.Exam().TopDownloaded(ctx, reportTopN)
	if err != nil {
		return nil, err
	}
	const examSheet = "Exams"
	f.SetSheetName("Sheet1", examSheet)
	writeDownloadHeader(f, examSheet)
	for i := range exams {
		e := &exams[i]
		writeDownloadRow(f, examSheet, i+2, e.ID, e.CourseCode, e.FileName, e.DownloadCount, e.CreatedAt)
	}

	sheets, err := s.repo.CheatSheet().TopDownloaded(ctx, reportTopN)
	if err != nil {
		return nil, err
	}
	const sheetSheet = "Cheat Sheets"
	if _, err := f.NewSheet(sheetSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}
	writeDownloadHeader(f, sheetSheet)
	for i := range sheets {
		cs := &sheets[i]
		writeDownloadRow(f, sheetSheet, i+2, cs.ID, cs.CourseCode, cs.FileName, cs.DownloadCount, cs.CreatedAt)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render downloads report: %w", err)
	}
	s.logger.Info("downloads report generated", "exams", len(exams), "cheat_sheets", len(sheets))
	return buf, nil
}

func writeDownloadHeader(f *excelize.File, sheet string) {
	headers := []string{"ID", "Course Code", "File Name", "Downloads", "Uploaded"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
}

func writeDownloadRow(f *excelize.File, sheet string, row int, id uint, courseCode, fileName string, downloads int64, createdAt time.Time) {
	values := []interface{}{id, courseCode, fileName, downloads, createdAt.Format(time.RFC3339)}
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}
