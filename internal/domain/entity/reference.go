package entity

import "time"

// AcademicYear is a school year. Reference data, read-only for the finance core.
type AcademicYear struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsCurrent bool      `json:"isCurrent"`
}

// Term is a billing period within an academic year
type Term struct {
	ID             int64     `json:"id"`
	AcademicYearID int64     `json:"academicYearId"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
}

// Class groups students for fee structures and billing runs
type Class struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student is the billed party on an invoice
type Student struct {
	ID          int64  `json:"id"`
	AdmissionNo string `json:"admissionNo"`
	FullName    string `json:"fullName"`
	ClassID     int64  `json:"classId,omitempty"`
	IsActive    bool   `json:"isActive"`
}
