package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
)

var nowFunc = time.Now // mockable

type siteApi struct {
	store    *site.Store
	sweeper  *site.Sweeper
	validate *validator.Validate
}

func registerSiteAPI(g, admin *echo.Group, jwt, isAdmin echo.MiddlewareFunc, api siteApi) {
	g.GET("/site", api.retrieve)
	g.POST("/site/visits", api.countVisit)
	g.GET("/notices", api.queryNotices)
	g.GET("/gallery", api.queryGallery)

	g.PATCH("/site", api.update, jwt, isAdmin)
	g.PUT("/site/contact", api.updateContact, jwt, isAdmin)
	g.POST("/site/contact/phones", api.addPhone, jwt, isAdmin)
	g.DELETE("/site/contact/phones/:index", api.removePhone, jwt, isAdmin)

	admin.GET("/site", api.retrieveAll)
	admin.GET("/session", api.retrieveSession)
	admin.POST("/retention/sweep", api.sweep)
}

func (api *siteApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.store.State().Data.Public())
}

func (api *siteApi) retrieveAll(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.store.State().Data)
}

func (api *siteApi) retrieveSession(ctx echo.Context) error {
	state := api.store.State()
	return ctx.JSON(http.StatusOK, SessionResponse{IsAdmin: state.IsAdmin, CurrentUser: state.CurrentUser})
}

func (api *siteApi) countVisit(ctx echo.Context) error {
	var visits int
	err := api.store.Apply(ctx.Request().Context(), func(state site.State) (site.Action, error) {
		visits = state.Data.PageVisits + 1
		return site.UpdateSiteData{Patch: site.SiteContentPatch{PageVisits: &visits}}, nil
	})
	if err != nil {
		return errors.Wrap(err, "counting page visit")
	}
	return ctx.JSON(http.StatusOK, VisitsResponse{PageVisits: visits})
}

func (api *siteApi) queryNotices(ctx echo.Context) error {
	notices, err := site.RenderNotices(api.store.State().Data.Notices)
	if err != nil {
		return errors.Wrap(err, "rendering notices")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *siteApi) queryGallery(ctx echo.Context) error {
	images := api.store.State().Data.GalleryImages
	category := core.CleanString(ctx.QueryParam("category"), true /* lower */)
	if category == "" || category == "all" {
		return ctx.JSON(http.StatusOK, images)
	}

	filtered := make([]site.GalleryImage, 0, len(images))
	for _, img := range images {
		if strings.EqualFold(img.Category, category) {
			filtered = append(filtered, img)
		}
	}
	return ctx.JSON(http.StatusOK, filtered)
}

func (api *siteApi) update(ctx echo.Context) error {
	var patch site.SiteContentPatch
	if err := ctx.Bind(&patch); err != nil {
		return errors.Wrap(err, "binding to SiteContentPatch")
	}
	// records & counters have their own endpoints
	patch.AdmissionInquiries = nil
	patch.AdminRequests = nil
	patch.PageVisits = nil
	patch.SchemaVersion = nil

	if err := api.store.Dispatch(ctx.Request().Context(), site.UpdateSiteData{Patch: patch}); err != nil {
		return errors.Wrap(err, "updating site")
	}
	return ctx.JSON(http.StatusOK, api.store.State().Data.Public())
}

func (api *siteApi) updateContact(ctx echo.Context) error {
	var contact site.ContactInfo
	if err := ctx.Bind(&contact); err != nil {
		return errors.Wrap(err, "binding to ContactInfo")
	}
	contact.Normalize()

	patch := site.SiteContentPatch{ContactInfo: &contact}
	if err := api.store.Dispatch(ctx.Request().Context(), site.UpdateSiteData{Patch: patch}); err != nil {
		return errors.Wrap(err, "updating contact info")
	}
	return ctx.JSON(http.StatusOK, api.store.State().Data.ContactInfo)
}

func (api *siteApi) addPhone(ctx echo.Context) error {
	var data PhoneRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PhoneRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.editContact(ctx, func(ci *site.ContactInfo) error { return ci.AddPhoneNumber(data.Number) })
	if err != nil {
		return errors.Wrap(err, "adding phone number")
	}
	return ctx.JSON(http.StatusCreated, api.store.State().Data.ContactInfo)
}

func (api *siteApi) removePhone(ctx echo.Context) error {
	idx, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return site.ErrPhoneIndexRange
	}

	err = api.editContact(ctx, func(ci *site.ContactInfo) error { return ci.RemovePhoneNumber(idx) })
	if err != nil {
		return errors.Wrap(err, "removing phone number")
	}
	return ctx.JSON(http.StatusOK, api.store.State().Data.ContactInfo)
}

// editContact applies `edit` to a copy of the current contact info & dispatches the result atomically.
func (api *siteApi) editContact(ctx echo.Context, edit func(ci *site.ContactInfo) error) error {
	return api.store.Apply(ctx.Request().Context(), func(state site.State) (site.Action, error) {
		contact := state.Data.ContactInfo
		contact.PhoneNumbers = append([]string(nil), contact.PhoneNumbers...)
		if err := edit(&contact); err != nil {
			return nil, err
		}
		return site.UpdateSiteData{Patch: site.SiteContentPatch{ContactInfo: &contact}}, nil
	})
}

func (api *siteApi) sweep(ctx echo.Context) error {
	removed, err := api.sweeper.Sweep(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sweeping admission inquiries")
	}
	return ctx.JSON(http.StatusOK, SweepResponse{Removed: removed})
}

type (
	VisitsResponse struct {
		PageVisits int `json:"pageVisits"`
	}

	SessionResponse struct {
		IsAdmin     bool              `json:"isAdmin"`
		CurrentUser *site.SessionUser `json:"currentUser"`
	}

	PhoneRequest struct {
		Number string `json:"number" validate:"notblank"`
	}

	SweepResponse struct {
		Removed int `json:"removed"`
	}
)

func (pr *PhoneRequest) Validate(validate *validator.Validate) error {
	pr.Number = core.CleanString(pr.Number)
	return validate.Struct(pr)
}
