package models

import "time"

// ===== ERROR / SUCCESS RESPONSES =====

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// RequiresPayment is set on 403 responses caused by the paid-member
	// gate so the client can route to an upgrade prompt.
	RequiresPayment bool `json:"requires_payment,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== ATTRIBUTION =====

// UploaderInfo is the attribution shape embedded in listing responses.
// Deleted accounts render as "deleted user" rather than disappearing,
// because resources outlive their uploader.
type UploaderInfo struct {
	ID       uint   `json:"id,omitempty"`
	Username string `json:"username"`
}

// DeletedUploader is the attribution placeholder for vanished accounts.
var DeletedUploader = UploaderInfo{Username: "deleted user"}

// ===== STATISTICS =====

// CourseStatistics aggregates review ratings for one course code.
type CourseStatistics struct {
	CourseCode    string  `json:"course_code"`
	CourseName    string  `json:"course_name"`
	ReviewCount   int64   `json:"review_count"`
	AvgOverall    float64 `json:"avg_overall"`
	AvgDifficulty float64 `json:"avg_difficulty"`
	AvgWorkload   float64 `json:"avg_workload"`
	AvgUsefulness float64 `json:"avg_usefulness"`
}

// DownloadStat is one row of the admin download report.
type DownloadStat struct {
	Category      string    `json:"category"` // "exam" or "cheat_sheet"
	ID            uint      `json:"id"`
	CourseCode    string    `json:"course_code"`
	FileName      string    `json:"file_name"`
	DownloadCount int64     `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}
