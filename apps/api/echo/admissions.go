package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/admission"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

type admissionApi struct {
	svc      admission.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerAdmissionAPI(g, admin *echo.Group, api admissionApi) {
	g.POST("/admissions", api.submit)

	ag := admin.Group("/admissions")
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/stats", api.stats)
	ag.GET("/export", api.export)
	ag.POST("/export/email", api.emailExport)
	ag.DELETE("/:id", api.destroy)
}

func (api *admissionApi) submit(ctx echo.Context) error {
	var data admission.NewInquiry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInquiry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inq, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting admission inquiry")
	}
	return ctx.JSON(http.StatusCreated, inq)
}

func (api *admissionApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.List())
}

func (api *admissionApi) stats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Stats())
}

func (api *admissionApi) export(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.svc.WriteCSV(&buf); err != nil {
		return errors.Wrap(err, "exporting admission inquiries")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+site.ExportFilename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *admissionApi) emailExport(ctx echo.Context) error {
	var data ExportEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExportEmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	to := mail.Address{Address: data.Email}
	if to.Address == "" {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		to = mail.Address{Name: ctxUsr.Name, Address: ctxUsr.Email}
	}

	if err := api.svc.EmailExport(ctx.Request().Context(), to); err != nil {
		return errors.Wrap(err, "emailing admission inquiries")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "The export will arrive in your inbox shortly."})
}

func (api *admissionApi) destroy(ctx echo.Context) error {
	n, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting admission inquiry")
	}
	if n == 0 {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *admissionApi) destroyMultiple(ctx echo.Context) error {
	var query IDsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to IDsQuery")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting admission inquiries")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ExportEmailRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

func (er *ExportEmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}
