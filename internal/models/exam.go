package models

import (
	"time"
)

type Semester string

const (
	SemesterFirst  Semester = "1"
	SemesterSecond Semester = "2"
	SemesterSummer Semester = "summer"
)

type ExamType string

const (
	ExamMidterm ExamType = "midterm"
	ExamFinal   ExamType = "final"
	ExamQuiz    ExamType = "quiz"
	ExamMakeup  ExamType = "makeup"
)

// Exam is a past-exam record. The file pointer fields must reference an
// existing readable file for as long as the record exists; the services
// layer keeps the two in lockstep.
type Exam struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	CourseCode string   `json:"course_code" gorm:"not null;size:16;index"`
	CourseName string   `json:"course_name" gorm:"not null;size:128"`
	Professor  *string  `json:"professor" gorm:"size:64"`
	Year       int      `json:"year" gorm:"not null;index"`
	Semester   Semester `json:"semester" gorm:"not null;size:8"`
	ExamType   ExamType `json:"exam_type" gorm:"not null;size:16"`

	FilePath      string `json:"-" gorm:"not null;size:512"`
	FileName      string `json:"file_name" gorm:"not null;size:255"`
	FileSize      int64  `json:"file_size" gorm:"not null"`
	DownloadCount int64  `json:"download_count" gorm:"not null;default:0"`

	UploaderID uint  `json:"uploader_id" gorm:"not null;index"`
	Uploader   *User `json:"uploader,omitempty" gorm:"foreignKey:UploaderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exam) TableName() string {
	return "exams"
}
