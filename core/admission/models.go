package admission

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/shule/core"
)

var upper = cases.Upper(language.Und)

// NewInquiry is the public admission form.
type NewInquiry struct {
	StudentName      string `json:"studentName" validate:"notblank"`
	ClassApplied     string `json:"classApplied" validate:"notblank"`
	PresentClass     string `json:"presentClass"`
	PreviousSchool   string `json:"previousSchool"`
	FatherName       string `json:"fatherName" validate:"notblank"`
	MotherName       string `json:"motherName"`
	PrimaryContact   string `json:"primaryContact" validate:"required,in_mobile"`
	SecondaryContact string `json:"secondaryContact" validate:"omitempty,in_mobile"`
	Location         string `json:"location"`
	AdditionalInfo   string `json:"additionalInfo"`
}

func cleanPhone(s string) string {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(core.CleanString(s))
	return strings.TrimPrefix(phone, "+91")
}

// Clean trims every field and upper-cases the names.
func (ni *NewInquiry) Clean() {
	ni.StudentName = upper.String(core.CleanString(ni.StudentName))
	ni.FatherName = upper.String(core.CleanString(ni.FatherName))
	ni.MotherName = upper.String(core.CleanString(ni.MotherName))
	ni.ClassApplied = core.CleanString(ni.ClassApplied)
	ni.PresentClass = core.CleanString(ni.PresentClass)
	ni.PreviousSchool = core.CleanString(ni.PreviousSchool)
	ni.PrimaryContact = cleanPhone(ni.PrimaryContact)
	ni.SecondaryContact = cleanPhone(ni.SecondaryContact)
	ni.Location = core.CleanString(ni.Location)
	ni.AdditionalInfo = core.CleanString(ni.AdditionalInfo)
}

func (ni *NewInquiry) Validate(validate *validator.Validate) error {
	ni.Clean()
	return validate.Struct(ni)
}
