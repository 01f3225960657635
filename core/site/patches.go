package site

// Patches carry the fields to change: nil fields are left untouched.
// A set nested value (eg: ContactInfo) replaces the whole nested value.
type (
	SiteContentPatch struct {
		SchoolName         *string             `json:"schoolName,omitempty"`
		SchoolLogo         *string             `json:"schoolLogo,omitempty"`
		SchoolNameImage    *string             `json:"schoolNameImage,omitempty"`
		WelcomeMessage     *string             `json:"welcomeMessage,omitempty"`
		WelcomeImage       *string             `json:"welcomeImage,omitempty"`
		LatestUpdates      *[]LatestUpdate     `json:"latestUpdates,omitempty" validate:"omitempty,dive"`
		SchoolHistory      *string             `json:"schoolHistory,omitempty"`
		YearEstablished    *string             `json:"yearEstablished,omitempty" validate:"omitempty,numeric,len=4"`
		EducationalSociety *string             `json:"educationalSociety,omitempty"`
		FounderDetails     *[]Founder          `json:"founderDetails,omitempty" validate:"omitempty,dive"`
		ContactInfo        *ContactInfo        `json:"contactInfo,omitempty"`
		NavigationItems    *[]NavigationItem   `json:"navigationItems,omitempty" validate:"omitempty,dive"`
		Notices            *[]Notice           `json:"notices,omitempty" validate:"omitempty,dive"`
		GalleryImages      *[]GalleryImage     `json:"galleryImages,omitempty" validate:"omitempty,dive"`
		AdmissionInquiries *[]AdmissionInquiry `json:"admissionInquiries,omitempty" validate:"omitempty,dive"`
		AdminRequests      *[]AdminRequest     `json:"adminRequests,omitempty" validate:"omitempty,dive"`
		PageVisits         *int                `json:"pageVisits,omitempty" validate:"omitempty,min=0"`
		SchemaVersion      *int                `json:"schemaVersion,omitempty"`
	}

	LatestUpdatePatch struct {
		Content *string `json:"content,omitempty"`
		Date    *string `json:"date,omitempty"`
	}

	FounderPatch struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
		Image       *string `json:"image,omitempty"`
	}

	NoticePatch struct {
		Title   *string `json:"title,omitempty"`
		Content *string `json:"content,omitempty"`
		Date    *string `json:"date,omitempty"`
	}

	GalleryImagePatch struct {
		URL      *string `json:"url,omitempty"`
		Caption  *string `json:"caption,omitempty"`
		Category *string `json:"category,omitempty"`
		Date     *string `json:"date,omitempty"`
	}
)

// IsEmpty reports whether the patch changes nothing.
func (p SiteContentPatch) IsEmpty() bool {
	return p == SiteContentPatch{}
}

func (p SiteContentPatch) apply(sc SiteContent) SiteContent {
	setString(&sc.SchoolName, p.SchoolName)
	setString(&sc.SchoolLogo, p.SchoolLogo)
	setString(&sc.SchoolNameImage, p.SchoolNameImage)
	setString(&sc.WelcomeMessage, p.WelcomeMessage)
	setString(&sc.WelcomeImage, p.WelcomeImage)
	setString(&sc.SchoolHistory, p.SchoolHistory)
	setString(&sc.YearEstablished, p.YearEstablished)
	setString(&sc.EducationalSociety, p.EducationalSociety)
	if p.LatestUpdates != nil {
		sc.LatestUpdates = cloneSlice(*p.LatestUpdates)
	}
	if p.FounderDetails != nil {
		sc.FounderDetails = cloneSlice(*p.FounderDetails)
	}
	if p.ContactInfo != nil {
		sc.ContactInfo = p.ContactInfo.clone()
	}
	if p.NavigationItems != nil {
		sc.NavigationItems = cloneSlice(*p.NavigationItems)
	}
	if p.Notices != nil {
		sc.Notices = cloneSlice(*p.Notices)
	}
	if p.GalleryImages != nil {
		sc.GalleryImages = cloneSlice(*p.GalleryImages)
	}
	if p.AdmissionInquiries != nil {
		sc.AdmissionInquiries = cloneSlice(*p.AdmissionInquiries)
	}
	if p.AdminRequests != nil {
		sc.AdminRequests = cloneSlice(*p.AdminRequests)
	}
	if p.PageVisits != nil {
		sc.PageVisits = *p.PageVisits
	}
	if p.SchemaVersion != nil {
		sc.SchemaVersion = *p.SchemaVersion
	}
	return sc
}

func (p LatestUpdatePatch) apply(u LatestUpdate) LatestUpdate {
	setString(&u.Content, p.Content)
	setString(&u.Date, p.Date)
	return u
}

func (p FounderPatch) apply(f Founder) Founder {
	setString(&f.Name, p.Name)
	setString(&f.Description, p.Description)
	setString(&f.Image, p.Image)
	return f
}

func (p NoticePatch) apply(n Notice) Notice {
	setString(&n.Title, p.Title)
	setString(&n.Content, p.Content)
	setString(&n.Date, p.Date)
	return n
}

func (p GalleryImagePatch) apply(img GalleryImage) GalleryImage {
	setString(&img.URL, p.URL)
	setString(&img.Caption, p.Caption)
	setString(&img.Category, p.Category)
	setString(&img.Date, p.Date)
	return img
}

// PatchFrom returns a patch setting every top-level field of `sc`.
// The patch owns its lists: later changes to `sc` don't leak into it.
func PatchFrom(sc SiteContent) SiteContentPatch {
	sc.LatestUpdates = cloneSlice(sc.LatestUpdates)
	sc.FounderDetails = cloneSlice(sc.FounderDetails)
	sc.ContactInfo = sc.ContactInfo.clone()
	sc.NavigationItems = cloneSlice(sc.NavigationItems)
	sc.Notices = cloneSlice(sc.Notices)
	sc.GalleryImages = cloneSlice(sc.GalleryImages)
	sc.AdmissionInquiries = cloneSlice(sc.AdmissionInquiries)
	sc.AdminRequests = cloneSlice(sc.AdminRequests)
	return SiteContentPatch{
		SchoolName:         &sc.SchoolName,
		SchoolLogo:         &sc.SchoolLogo,
		SchoolNameImage:    &sc.SchoolNameImage,
		WelcomeMessage:     &sc.WelcomeMessage,
		WelcomeImage:       &sc.WelcomeImage,
		LatestUpdates:      &sc.LatestUpdates,
		SchoolHistory:      &sc.SchoolHistory,
		YearEstablished:    &sc.YearEstablished,
		EducationalSociety: &sc.EducationalSociety,
		FounderDetails:     &sc.FounderDetails,
		ContactInfo:        &sc.ContactInfo,
		NavigationItems:    &sc.NavigationItems,
		Notices:            &sc.Notices,
		GalleryImages:      &sc.GalleryImages,
		AdmissionInquiries: &sc.AdmissionInquiries,
		AdminRequests:      &sc.AdminRequests,
		PageVisits:         &sc.PageVisits,
		SchemaVersion:      &sc.SchemaVersion,
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// cloneSlice copies `s`, never returning nil so lists serialize as `[]`.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
