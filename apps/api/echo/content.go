package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/site"
)

const dateLayout = "2006-01-02"

// resource describes a list of the site document edited entry by entry.
type resource[T any, P any] struct {
	name    string
	list    func(site.SiteContent) []T
	entryID func(T) string
	prepare func(entry *T, id, today string)
	add     func(T) site.Action
	update  func(id string, patch P) site.Action
	remove  func(id string) site.Action
}

func registerContentAPI(admin *echo.Group, store *site.Store) {
	registerResource(admin, "/notices", store, resource[site.Notice, site.NoticePatch]{
		name:    "Notice",
		list:    func(sc site.SiteContent) []site.Notice { return sc.Notices },
		entryID: func(n site.Notice) string { return n.ID },
		prepare: func(n *site.Notice, id, today string) {
			n.ID = id
			if n.Date == "" {
				n.Date = today
			}
		},
		add:    func(n site.Notice) site.Action { return site.AddNotice{Notice: n} },
		update: func(id string, p site.NoticePatch) site.Action { return site.UpdateNotice{ID: id, Patch: p} },
		remove: func(id string) site.Action { return site.DeleteNotice{ID: id} },
	})

	registerResource(admin, "/gallery", store, resource[site.GalleryImage, site.GalleryImagePatch]{
		name:    "GalleryImage",
		list:    func(sc site.SiteContent) []site.GalleryImage { return sc.GalleryImages },
		entryID: func(img site.GalleryImage) string { return img.ID },
		prepare: func(img *site.GalleryImage, id, today string) {
			img.ID = id
			if img.Date == "" {
				img.Date = today
			}
			if img.Category == "" {
				img.Category = "general"
			}
		},
		add: func(img site.GalleryImage) site.Action { return site.AddGalleryImage{Image: img} },
		update: func(id string, p site.GalleryImagePatch) site.Action {
			return site.UpdateGalleryImage{ID: id, Patch: p}
		},
		remove: func(id string) site.Action { return site.DeleteGalleryImage{ID: id} },
	})

	registerResource(admin, "/latest-updates", store, resource[site.LatestUpdate, site.LatestUpdatePatch]{
		name:    "LatestUpdate",
		list:    func(sc site.SiteContent) []site.LatestUpdate { return sc.LatestUpdates },
		entryID: func(u site.LatestUpdate) string { return u.ID },
		prepare: func(u *site.LatestUpdate, id, today string) {
			u.ID = id
			if u.Date == "" {
				u.Date = today
			}
		},
		add: func(u site.LatestUpdate) site.Action { return site.AddLatestUpdate{Update: u} },
		update: func(id string, p site.LatestUpdatePatch) site.Action {
			return site.UpdateLatestUpdate{ID: id, Patch: p}
		},
		remove: func(id string) site.Action { return site.DeleteLatestUpdate{ID: id} },
	})

	registerResource(admin, "/founders", store, resource[site.Founder, site.FounderPatch]{
		name:    "Founder",
		list:    func(sc site.SiteContent) []site.Founder { return sc.FounderDetails },
		entryID: func(f site.Founder) string { return f.ID },
		prepare: func(f *site.Founder, id, _ string) { f.ID = id },
		add:     func(f site.Founder) site.Action { return site.AddFounder{Founder: f} },
		update:  func(id string, p site.FounderPatch) site.Action { return site.UpdateFounder{ID: id, Patch: p} },
		remove:  func(id string) site.Action { return site.DeleteFounder{ID: id} },
	})
}

func registerResource[T any, P any](g *echo.Group, path string, store *site.Store, res resource[T, P]) {
	// find returns the entry with `id` in `sc`.
	find := func(sc site.SiteContent, id string) (T, bool) {
		for _, entry := range res.list(sc) {
			if res.entryID(entry) == id {
				return entry, true
			}
		}
		var zero T
		return zero, false
	}

	// editExisting dispatches the action built by `action` only when the entry exists.
	editExisting := func(ctx echo.Context, action func(id string) site.Action) error {
		id := ctx.Param("id")
		return store.Apply(ctx.Request().Context(), func(state site.State) (site.Action, error) {
			if _, ok := find(state.Data, id); !ok {
				return nil, errHttpNotFound
			}
			return action(id), nil
		})
	}

	g.GET(path, func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, res.list(store.State().Data))
	})

	g.POST(path, func(ctx echo.Context) error {
		var entry T
		if err := ctx.Bind(&entry); err != nil {
			return errors.Wrap(err, "binding to "+res.name)
		}
		res.prepare(&entry, uuid.New().String(), nowFunc().Format(dateLayout))

		if err := store.Dispatch(ctx.Request().Context(), res.add(entry)); err != nil {
			return errors.Wrap(err, "adding "+res.name)
		}
		return ctx.JSON(http.StatusCreated, entry)
	})

	g.PATCH(path+"/:id", func(ctx echo.Context) error {
		var patch P
		if err := ctx.Bind(&patch); err != nil {
			return errors.Wrap(err, "binding to "+res.name+"Patch")
		}
		if err := editExisting(ctx, func(id string) site.Action { return res.update(id, patch) }); err != nil {
			return errors.Wrap(err, "updating "+res.name)
		}

		entry, _ := find(store.State().Data, ctx.Param("id"))
		return ctx.JSON(http.StatusOK, entry)
	})

	g.DELETE(path+"/:id", func(ctx echo.Context) error {
		if err := editExisting(ctx, res.remove); err != nil {
			return errors.Wrap(err, "deleting "+res.name)
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}
