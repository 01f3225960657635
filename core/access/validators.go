package access

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core/user"
)

// InitValidators applies the user password policy to admin requests.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(adminRequestStructValidation, NewAdminRequest{})
}

func adminRequestStructValidation(sl validator.StructLevel) {
	nr, ok := sl.Current().Interface().(NewAdminRequest)
	if !ok {
		return
	}
	user.ValidatePassword(nr.Password, sl, nr.FirstName, nr.LastName, nr.FullName(), nr.Email)
}
