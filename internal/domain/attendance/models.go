package attendance

import "time"

type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

type DayStatus string

const (
	DayPresent           DayStatus = "present"
	DayLate              DayStatus = "late"
	DayIncomplete        DayStatus = "incomplete"
	DayNeedsManualReview DayStatus = "needs_manual_review"
)

type Upload struct {
	ID               string       `json:"id"`
	SiteID           string       `json:"siteId"`
	FileName         string       `json:"fileName"`
	DateFrom         time.Time    `json:"dateFrom"`
	DateTo           time.Time    `json:"dateTo"`
	Status           UploadStatus `json:"status"`
	TotalRecords     int          `json:"totalRecords"`
	MatchedRecords   int          `json:"matchedRecords"`
	UnmatchedRecords int          `json:"unmatchedRecords"`
	SkippedRecords   int          `json:"skippedRecords"`
	DaysUpserted     int          `json:"daysUpserted"`
	UnmatchedNames   []string     `json:"unmatchedNames"`
	ErrorMessage     string       `json:"errorMessage,omitempty"`
	UploadedBy       string       `json:"uploadedBy,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	ProcessedAt      *time.Time   `json:"processedAt,omitempty"`
	// Warnings is filled only on the response of the import that produced
	// the upload; it is not stored.
	Warnings []UnmatchedName `json:"warnings,omitempty"`
}

// ScanRecord is one stored badge event. It is never modified after insert.
type ScanRecord struct {
	ID         string    `json:"id"`
	UploadID   string    `json:"uploadId"`
	EmployeeID string    `json:"employeeId"`
	SiteID     string    `json:"siteId"`
	ScanAt     time.Time `json:"scanAt"`
	DeviceNo   string    `json:"deviceNo"`
	Mode       string    `json:"mode,omitempty"`
}

// Day is the attendance derived for one employee and shift date.
type Day struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employeeId"`
	ShiftDate        time.Time  `json:"shiftDate"`
	ScheduledTimeIn  *time.Time `json:"scheduledTimeIn,omitempty"`
	ScheduledTimeOut *time.Time `json:"scheduledTimeOut,omitempty"`
	ActualTimeIn     *time.Time `json:"actualTimeIn,omitempty"`
	ActualTimeOut    *time.Time `json:"actualTimeOut,omitempty"`
	Status           DayStatus  `json:"status"`
	BioInSiteID      string     `json:"bioInSiteId,omitempty"`
	BioOutSiteID     string     `json:"bioOutSiteId,omitempty"`
	UploadID         string     `json:"uploadId,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Scan is the input to Aggregate.
type Scan struct {
	At       time.Time
	SiteID   string
	DeviceNo string
}

// Candidate is an employee a raw device name can resolve to.
type Candidate struct {
	EmployeeID string
	FirstName  string
	MiddleName string
	LastName   string
	FullName   string
}

type ImportInput struct {
	FileName   string
	Data       []byte
	SiteID     string
	DateFrom   time.Time
	DateTo     time.Time
	UploadedBy string
}
