package site

import (
	"encoding/csv"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
)

const ExportFilename = "admission-inquiries.csv"

var ErrNothingToExport = errors.New("no admission inquiries to export")

// ExportColumns are the CSV header labels, in column order.
var ExportColumns = []string{
	"Student Name",
	"Class Applied",
	"Present Class",
	"Previous School",
	"Father Name",
	"Mother Name",
	"Primary Contact",
	"Secondary Contact",
	"Location",
	"Additional Info",
	"Submitted Date",
}

// ExportRecord is an inquiry projected onto ExportColumns.
type ExportRecord []string

// ExportInquiries projects inquiries onto the export columns, keeping their order.
func ExportInquiries(inquiries []AdmissionInquiry) []ExportRecord {
	records := make([]ExportRecord, 0, len(inquiries))
	for _, inq := range inquiries {
		records = append(records, ExportRecord{
			inq.StudentName,
			inq.ClassApplied,
			inq.PresentClass,
			inq.PreviousSchool,
			inq.FatherName,
			inq.MotherName,
			inq.PrimaryContact,
			inq.SecondaryContact,
			inq.Location,
			inq.AdditionalInfo,
			inq.SubmittedDate,
		})
	}
	return records
}

// WriteCSV writes the header row followed by `records`.
func WriteCSV(w io.Writer, records []ExportRecord) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "writing csv record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// InquiryStats summarizes the admission inquiries for the admin dashboard.
type InquiryStats struct {
	Total     int `json:"total"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
}

// ComputeInquiryStats counts the inquiries submitted within 7 and 30 days of `now`.
// The day distance is rounded up; unparseable dates only count toward the total.
func ComputeInquiryStats(inquiries []AdmissionInquiry, now time.Time) InquiryStats {
	stats := InquiryStats{Total: len(inquiries)}
	for _, inq := range inquiries {
		submitted, err := ParseSubmittedDate(inq.SubmittedDate)
		if err != nil {
			continue
		}
		days := math.Ceil(math.Abs(now.Sub(submitted).Hours()) / 24)
		if days <= 7 {
			stats.ThisWeek++
		}
		if days <= 30 {
			stats.ThisMonth++
		}
	}
	return stats
}
