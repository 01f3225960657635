package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

type adminRequestApi struct {
	svc      access.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerAdminRequestAPI(g, admin *echo.Group, api adminRequestApi) {
	g.POST("/admin-requests", api.create)

	ag := admin.Group("/admin-requests")
	ag.GET("", api.query)
	ag.POST("/:id/approve", api.approve)
	ag.POST("/:id/reject", api.reject)
	ag.DELETE("/:id", api.destroy)
}

func (api *adminRequestApi) create(ctx echo.Context) error {
	var data access.NewAdminRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdminRequest")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	req, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering admin request")
	}
	return ctx.JSON(http.StatusCreated, newAdminRequestResponse(req))
}

func (api *adminRequestApi) query(ctx echo.Context) error {
	var filter AdminRequestFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AdminRequestFilter")
	}

	statuses := make([]site.RequestStatus, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, site.RequestStatus(s))
	}
	reqs := api.svc.List(statuses...)

	resp := make([]AdminRequestResponse, 0, len(reqs))
	for _, req := range reqs {
		resp = append(resp, newAdminRequestResponse(req))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *adminRequestApi) approve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), ctxUsr)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, ApprovalResponse{Success: "Admin access granted.", User: usr})
	case access.ErrAlreadyRegistered:
		return ctx.JSON(http.StatusOK, ApprovalResponse{Success: access.ErrAlreadyRegistered.Error(), User: usr})
	default:
		return errors.Wrap(err, "approving admin request")
	}
}

func (api *adminRequestApi) reject(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return errors.Wrap(err, "rejecting admin request")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Admin request rejected."})
}

func (api *adminRequestApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting admin request")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	AdminRequestFilter struct {
		Statuses []string `query:"status"`
	}

	// AdminRequestResponse is an AdminRequest without its password hash.
	AdminRequestResponse struct {
		ID          string             `json:"id"`
		FirstName   string             `json:"firstName"`
		LastName    string             `json:"lastName"`
		Email       string             `json:"email"`
		Phone       string             `json:"phone"`
		RequestDate string             `json:"requestDate"`
		Status      site.RequestStatus `json:"status"`
	}

	ApprovalResponse struct {
		Success string    `json:"success"`
		User    user.User `json:"user"`
	}
)

func newAdminRequestResponse(req site.AdminRequest) AdminRequestResponse {
	return AdminRequestResponse{
		ID:          req.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		RequestDate: req.RequestDate,
		Status:      req.Status,
	}
}
