package models

import (
	"time"
)

// CourseReview holds one user's review of a course offering. The composite
// unique index enforces at most one review per (author, course code,
// professor, year, semester) tuple; the service checks the same tuple
// before insert to return a friendly conflict error.
type CourseReview struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	CourseCode string   `json:"course_code" gorm:"not null;size:16;uniqueIndex:idx_review_tuple;index"`
	CourseName string   `json:"course_name" gorm:"not null;size:128"`
	Professor  string   `json:"professor" gorm:"not null;size:64;uniqueIndex:idx_review_tuple"`
	Year       int      `json:"year" gorm:"not null;uniqueIndex:idx_review_tuple"`
	Semester   Semester `json:"semester" gorm:"not null;size:8;uniqueIndex:idx_review_tuple"`

	Overall    float64 `json:"overall" gorm:"not null"`
	Difficulty int     `json:"difficulty" gorm:"not null"`
	Workload   int     `json:"workload" gorm:"not null"`
	Usefulness int     `json:"usefulness" gorm:"not null"`
	Comment    string  `json:"comment" gorm:"size:2000"`
	Anonymous  bool    `json:"anonymous" gorm:"not null;default:false"`

	AuthorID uint  `json:"author_id" gorm:"not null;index;uniqueIndex:idx_review_tuple"`
	Author   *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CourseReview) TableName() string {
	return "course_reviews"
}

// Course is a denormalized catalog entry, upserted whenever a review names
// a course not yet seen.
type Course struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"uniqueIndex;not null;size:16"`
	Name string `json:"name" gorm:"not null;size:128"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}
