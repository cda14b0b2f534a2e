package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheatSheet is a study-material record with the same file pointer
// discipline as Exam.
type CheatSheet struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	CourseCode  string                      `json:"course_code" gorm:"not null;size:16;index"`
	CourseName  string                      `json:"course_name" gorm:"not null;size:128"`
	Professor   *string                     `json:"professor" gorm:"size:64"`
	Title       string                      `json:"title" gorm:"not null;size:200"`
	Description *string                     `json:"description" gorm:"size:1000"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`

	FilePath      string `json:"-" gorm:"not null;size:512"`
	FileName      string `json:"file_name" gorm:"not null;size:255"`
	FileSize      int64  `json:"file_size" gorm:"not null"`
	DownloadCount int64  `json:"download_count" gorm:"not null;default:0"`

	UploaderID uint  `json:"uploader_id" gorm:"not null;index"`
	Uploader   *User `json:"uploader,omitempty" gorm:"foreignKey:UploaderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CheatSheet) TableName() string {
	return "cheat_sheets"
}
