package site

import "time"

// ActionKind names an action. Kinds are logged and never persisted.
type ActionKind string

const (
	KindLoadPersistedData      ActionKind = "LOAD_PERSISTED_DATA"
	KindUpdateSiteData         ActionKind = "UPDATE_SCHOOL_DATA"
	KindSetAdmin               ActionKind = "SET_ADMIN"
	KindAddNotice              ActionKind = "ADD_NOTICE"
	KindUpdateNotice           ActionKind = "UPDATE_NOTICE"
	KindDeleteNotice           ActionKind = "DELETE_NOTICE"
	KindAddGalleryImage        ActionKind = "ADD_GALLERY_IMAGE"
	KindUpdateGalleryImage     ActionKind = "UPDATE_GALLERY_IMAGE"
	KindDeleteGalleryImage     ActionKind = "DELETE_GALLERY_IMAGE"
	KindAddAdmissionInquiry    ActionKind = "ADD_ADMISSION_INQUIRY"
	KindDeleteAdmissionInquiry ActionKind = "DELETE_ADMISSION_INQUIRY"
	KindAddLatestUpdate        ActionKind = "ADD_LATEST_UPDATE"
	KindUpdateLatestUpdate     ActionKind = "UPDATE_LATEST_UPDATE"
	KindDeleteLatestUpdate     ActionKind = "DELETE_LATEST_UPDATE"
	KindAddFounder             ActionKind = "ADD_FOUNDER"
	KindUpdateFounder          ActionKind = "UPDATE_FOUNDER"
	KindDeleteFounder          ActionKind = "DELETE_FOUNDER"
	KindAddAdminRequest        ActionKind = "ADD_ADMIN_REQUEST"
	KindUpdateAdminRequest     ActionKind = "UPDATE_ADMIN_REQUEST"
	KindDeleteAdminRequest     ActionKind = "DELETE_ADMIN_REQUEST"
	KindCleanupOldInquiries    ActionKind = "CLEANUP_OLD_INQUIRIES"
)

// Action is a named request to transition the store's State.
type Action interface {
	Kind() ActionKind
}

type (
	LoadPersistedData struct {
		Data SiteContentPatch
	}

	UpdateSiteData struct {
		Patch SiteContentPatch
	}

	SetAdmin struct {
		IsAdmin bool
		User    *SessionUser
	}

	AddNotice struct {
		Notice Notice
	}

	UpdateNotice struct {
		ID    string `validate:"required"`
		Patch NoticePatch
	}

	DeleteNotice struct {
		ID string `validate:"required"`
	}

	AddGalleryImage struct {
		Image GalleryImage
	}

	UpdateGalleryImage struct {
		ID    string `validate:"required"`
		Patch GalleryImagePatch
	}

	DeleteGalleryImage struct {
		ID string `validate:"required"`
	}

	AddAdmissionInquiry struct {
		Inquiry AdmissionInquiry
	}

	DeleteAdmissionInquiry struct {
		ID string `validate:"required"`
	}

	AddLatestUpdate struct {
		Update LatestUpdate
	}

	UpdateLatestUpdate struct {
		ID    string `validate:"required"`
		Patch LatestUpdatePatch
	}

	DeleteLatestUpdate struct {
		ID string `validate:"required"`
	}

	AddFounder struct {
		Founder Founder
	}

	UpdateFounder struct {
		ID    string `validate:"required"`
		Patch FounderPatch
	}

	DeleteFounder struct {
		ID string `validate:"required"`
	}

	AddAdminRequest struct {
		Request AdminRequest
	}

	UpdateAdminRequest struct {
		ID     string        `validate:"required"`
		Status RequestStatus `validate:"oneof=pending approved rejected"`
	}

	DeleteAdminRequest struct {
		ID string `validate:"required"`
	}

	// CleanupOldInquiries evicts the admission inquiries older than six months before Now.
	// The Store fills a zero Now with the current time.
	CleanupOldInquiries struct {
		Now time.Time
	}
)

func (LoadPersistedData) Kind() ActionKind      { return KindLoadPersistedData }
func (UpdateSiteData) Kind() ActionKind         { return KindUpdateSiteData }
func (SetAdmin) Kind() ActionKind               { return KindSetAdmin }
func (AddNotice) Kind() ActionKind              { return KindAddNotice }
func (UpdateNotice) Kind() ActionKind           { return KindUpdateNotice }
func (DeleteNotice) Kind() ActionKind           { return KindDeleteNotice }
func (AddGalleryImage) Kind() ActionKind        { return KindAddGalleryImage }
func (UpdateGalleryImage) Kind() ActionKind     { return KindUpdateGalleryImage }
func (DeleteGalleryImage) Kind() ActionKind     { return KindDeleteGalleryImage }
func (AddAdmissionInquiry) Kind() ActionKind    { return KindAddAdmissionInquiry }
func (DeleteAdmissionInquiry) Kind() ActionKind { return KindDeleteAdmissionInquiry }
func (AddLatestUpdate) Kind() ActionKind        { return KindAddLatestUpdate }
func (UpdateLatestUpdate) Kind() ActionKind     { return KindUpdateLatestUpdate }
func (DeleteLatestUpdate) Kind() ActionKind     { return KindDeleteLatestUpdate }
func (AddFounder) Kind() ActionKind             { return KindAddFounder }
func (UpdateFounder) Kind() ActionKind          { return KindUpdateFounder }
func (DeleteFounder) Kind() ActionKind          { return KindDeleteFounder }
func (AddAdminRequest) Kind() ActionKind        { return KindAddAdminRequest }
func (UpdateAdminRequest) Kind() ActionKind     { return KindUpdateAdminRequest }
func (DeleteAdminRequest) Kind() ActionKind     { return KindDeleteAdminRequest }
func (CleanupOldInquiries) Kind() ActionKind    { return KindCleanupOldInquiries }
