package access

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/shule/core"
)

// PhonePrefix is prepended to the 10 digit mobile numbers applicants provide.
const PhonePrefix = "+91"

var upper = cases.Upper(language.Und)

// NewAdminRequest is what an applicant submits to get admin access.
type NewAdminRequest struct {
	FirstName       string `json:"firstName" validate:"notblank"`
	LastName        string `json:"lastName" validate:"notblank"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,in_mobile"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Clean trims every field, upper-cases names, lower-cases the email and strips
// separators & the country code from the phone number.
func (nr *NewAdminRequest) Clean() {
	nr.FirstName = upper.String(core.CleanString(nr.FirstName))
	nr.LastName = upper.String(core.CleanString(nr.LastName))
	nr.Email = core.CleanString(nr.Email, true /* lower */)

	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(core.CleanString(nr.Phone))
	if strings.HasPrefix(phone, PhonePrefix) {
		phone = strings.TrimPrefix(phone, PhonePrefix)
	}
	nr.Phone = phone
}

func (nr *NewAdminRequest) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nr.Clean()
	if err := validate.Struct(nr); err != nil {
		return err
	}
	return svc.CheckEmailAvailable(ctx, nr.Email)
}

// FullName joins the first & last names.
func (nr NewAdminRequest) FullName() string {
	return strings.TrimSpace(nr.FirstName + " " + nr.LastName)
}
