package site

import (
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// SchemaVersion is the version of the SiteContent layout written to storage.
const SchemaVersion = 1

const MaxPhoneNumbers = 5

var (
	ErrTooManyPhoneNumbers = errors.Errorf("a maximum of %d phone numbers is allowed", MaxPhoneNumbers)
	ErrLastPhoneNumber     = errors.New("at least one phone number is required")
	ErrPhoneIndexRange     = errors.New("phone number index out of range")
)

// RequestStatus is the state of an AdminRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

type (
	LatestUpdate struct {
		ID      string `json:"id" validate:"required"`
		Content string `json:"content" validate:"notblank"`
		Date    string `json:"date"`
	}

	Founder struct {
		ID          string `json:"id" validate:"required"`
		Name        string `json:"name" validate:"notblank"`
		Description string `json:"description"`
		Image       string `json:"image"`
	}

	ContactInfo struct {
		Address      string   `json:"address"`
		Email        string   `json:"email" validate:"omitempty,email"`
		Phone        string   `json:"phone"`
		PhoneNumbers []string `json:"phoneNumbers" validate:"min=1,max=5"`
		MapEmbed     string   `json:"mapEmbed"`
	}

	NavigationItem struct {
		Name    string `json:"name" validate:"notblank"`
		Path    string `json:"path" validate:"required"`
		Visible bool   `json:"visible"`
	}

	Notice struct {
		ID      string `json:"id" validate:"required"`
		Title   string `json:"title" validate:"notblank"`
		Content string `json:"content"`
		Date    string `json:"date"`
	}

	GalleryImage struct {
		ID       string `json:"id" validate:"required"`
		URL      string `json:"url" validate:"required"`
		Caption  string `json:"caption"`
		Category string `json:"category"`
		Date     string `json:"date"`
	}

	AdmissionInquiry struct {
		ID               string `json:"id" validate:"required"`
		StudentName      string `json:"studentName" validate:"notblank"`
		ClassApplied     string `json:"classApplied" validate:"notblank"`
		PresentClass     string `json:"presentClass"`
		PreviousSchool   string `json:"previousSchool"`
		FatherName       string `json:"fatherName" validate:"notblank"`
		MotherName       string `json:"motherName"`
		PrimaryContact   string `json:"primaryContact" validate:"notblank"`
		SecondaryContact string `json:"secondaryContact"`
		Location         string `json:"location"`
		AdditionalInfo   string `json:"additionalInfo"`
		SubmittedDate    string `json:"submittedDate" validate:"required"`
	}

	// AdminRequest is an application for admin access. Only the bcrypt hash of the
	// applicant's password is ever stored.
	AdminRequest struct {
		ID           string        `json:"id" validate:"required"`
		FirstName    string        `json:"firstName" validate:"notblank"`
		LastName     string        `json:"lastName" validate:"notblank"`
		Email        string        `json:"email" validate:"required,email"`
		Phone        string        `json:"phone"`
		PasswordHash string        `json:"passwordHash" validate:"required"`
		RequestDate  string        `json:"requestDate"`
		Status       RequestStatus `json:"status" validate:"oneof=pending approved rejected"`
	}

	// SiteContent is the whole editable site as one document.
	SiteContent struct {
		SchoolName         string             `json:"schoolName"`
		SchoolLogo         string             `json:"schoolLogo"`
		SchoolNameImage    string             `json:"schoolNameImage,omitempty"`
		WelcomeMessage     string             `json:"welcomeMessage"`
		WelcomeImage       string             `json:"welcomeImage"`
		LatestUpdates      []LatestUpdate     `json:"latestUpdates"`
		SchoolHistory      string             `json:"schoolHistory"`
		YearEstablished    string             `json:"yearEstablished"`
		EducationalSociety string             `json:"educationalSociety"`
		FounderDetails     []Founder          `json:"founderDetails"`
		ContactInfo        ContactInfo        `json:"contactInfo"`
		NavigationItems    []NavigationItem   `json:"navigationItems"`
		Notices            []Notice           `json:"notices"`
		GalleryImages      []GalleryImage     `json:"galleryImages"`
		AdmissionInquiries []AdmissionInquiry `json:"admissionInquiries"`
		AdminRequests      []AdminRequest     `json:"adminRequests"`
		PageVisits         int                `json:"pageVisits"`
		SchemaVersion      int                `json:"schemaVersion"`
	}

	// SessionUser is the logged-in admin of a console session.
	SessionUser struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// State is what the Store holds. IsAdmin & CurrentUser are session-scoped and never persisted.
	State struct {
		Data        SiteContent
		IsAdmin     bool
		CurrentUser *SessionUser
	}
)

func (u LatestUpdate) entryID() string     { return u.ID }
func (f Founder) entryID() string          { return f.ID }
func (n Notice) entryID() string           { return n.ID }
func (i GalleryImage) entryID() string     { return i.ID }
func (i AdmissionInquiry) entryID() string { return i.ID }
func (r AdminRequest) entryID() string     { return r.ID }

// FindAdminRequest returns the AdminRequest with the given id.
func (sc SiteContent) FindAdminRequest(id string) (AdminRequest, bool) {
	for _, req := range sc.AdminRequests {
		if req.ID == id {
			return req, true
		}
	}
	return AdminRequest{}, false
}

// AdminRequestsByStatus returns the requests with one of the given statuses, in document order.
func (sc SiteContent) AdminRequestsByStatus(statuses ...RequestStatus) []AdminRequest {
	reqs := make([]AdminRequest, 0, len(sc.AdminRequests))
	for _, req := range sc.AdminRequests {
		for _, status := range statuses {
			if req.Status == status {
				reqs = append(reqs, req)
				break
			}
		}
	}
	return reqs
}

// Public strips the records only admins may see.
func (sc SiteContent) Public() SiteContent {
	pub := sc
	pub.AdmissionInquiries = []AdmissionInquiry{}
	pub.AdminRequests = []AdminRequest{}
	return pub
}

// Normalize drops blank phone numbers and keeps Phone equal to the first number.
func (ci *ContactInfo) Normalize() {
	phones := make([]string, 0, len(ci.PhoneNumbers))
	for _, p := range ci.PhoneNumbers {
		if p = core.CleanString(p); p != "" {
			phones = append(phones, p)
		}
	}
	if len(phones) == 0 && core.CleanString(ci.Phone) != "" {
		phones = append(phones, core.CleanString(ci.Phone))
	}
	ci.PhoneNumbers = phones
	if len(phones) > 0 {
		ci.Phone = phones[0]
	}
}

// AddPhoneNumber appends a number, keeping at most MaxPhoneNumbers.
func (ci *ContactInfo) AddPhoneNumber(number string) error {
	if len(ci.PhoneNumbers) >= MaxPhoneNumbers {
		return ErrTooManyPhoneNumbers
	}
	phones := make([]string, 0, len(ci.PhoneNumbers)+1)
	phones = append(phones, ci.PhoneNumbers...)
	ci.PhoneNumbers = append(phones, core.CleanString(number))
	ci.Normalize()
	return nil
}

// RemovePhoneNumber removes the number at index `idx`; the last number cannot be removed.
func (ci *ContactInfo) RemovePhoneNumber(idx int) error {
	if idx < 0 || idx >= len(ci.PhoneNumbers) {
		return ErrPhoneIndexRange
	}
	if len(ci.PhoneNumbers) <= 1 {
		return ErrLastPhoneNumber
	}
	phones := make([]string, 0, len(ci.PhoneNumbers)-1)
	phones = append(phones, ci.PhoneNumbers[:idx]...)
	ci.PhoneNumbers = append(phones, ci.PhoneNumbers[idx+1:]...)
	ci.Normalize()
	return nil
}

func (ci ContactInfo) clone() ContactInfo {
	ci.PhoneNumbers = cloneSlice(ci.PhoneNumbers)
	return ci
}

// DefaultContent returns the content a fresh site starts with.
func DefaultContent() SiteContent {
	return SiteContent{
		SchoolName:     "New Narayana School",
		SchoolLogo:     "/placeholder.svg",
		WelcomeMessage: "Welcome to New Narayana School - Nurturing Excellence in Education",
		WelcomeImage:   "https://images.unsplash.com/photo-1523050854058-8df90110c9f1",
		LatestUpdates: []LatestUpdate{
			{ID: "1", Content: "Admission Open for Academic Year 2024-25", Date: "2024-01-15"},
			{ID: "2", Content: "Annual Sports Day scheduled for December 15th", Date: "2024-01-14"},
			{ID: "3", Content: "Parent-Teacher Meeting on November 30th", Date: "2024-01-13"},
		},
		SchoolHistory: "Established in 2023, New Narayana School has been a beacon of quality education, " +
			"fostering academic excellence and character development.",
		YearEstablished: "2023",
		EducationalSociety: "Narayana Educational Society has been dedicated to promoting quality education " +
			"and holistic development of students across the region.",
		FounderDetails: []Founder{
			{
				ID:          "1",
				Name:        "Dr. P. Narayana",
				Description: "Founded with a vision to provide world-class education accessible to all.",
				Image:       "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d",
			},
		},
		ContactInfo: ContactInfo{
			Address:      "8G49+HFJ, Sri Laxmi Nagar Colony, Badangpet, Hyderabad, Telangana 500058",
			Email:        "info@newnarayanaschool.edu",
			Phone:        "+91 98765 43210",
			PhoneNumbers: []string{"+91 98765 43210"},
			MapEmbed: "https://www.google.com/maps/embed/v1/search?q=8G49%2BHFJ%2C%20Sri%20Laxmi%20Nagar%20Colony" +
				"%2C%20Badangpet%2C%20Hyderabad%2C%20Telangana%20500058",
		},
		NavigationItems: []NavigationItem{
			{Name: "Home", Path: "/", Visible: true},
			{Name: "About Us", Path: "/about", Visible: true},
			{Name: "Admissions", Path: "/admissions", Visible: true},
			{Name: "Gallery", Path: "/gallery", Visible: true},
			{Name: "Notice Board", Path: "/notice-board", Visible: true},
			{Name: "Contact Us", Path: "/contact", Visible: true},
			{Name: "Login", Path: "/login", Visible: true},
		},
		Notices: []Notice{
			{
				ID:      "1",
				Title:   "Admission Open",
				Content: "Admissions are now open for the academic year 2024-25. Please visit the admissions office for more details.",
				Date:    "2024-01-15",
			},
		},
		GalleryImages: []GalleryImage{
			{
				ID:       "1",
				URL:      "https://images.unsplash.com/photo-1523050854058-8df90110c9f1",
				Caption:  "School Building",
				Category: "general",
				Date:     "2024-01-01",
			},
		},
		AdmissionInquiries: []AdmissionInquiry{},
		AdminRequests:      []AdminRequest{},
		PageVisits:         0,
		SchemaVersion:      SchemaVersion,
	}
}

// InitialState is the state of a Store before hydration.
func InitialState() State {
	return State{Data: DefaultContent()}
}
