package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/site"
)

func Test_contentApi_notices(t *testing.T) {
	srv := setup(t)
	adm := createAdmin(t, "Admin", "admin@school.test")
	token := getToken(t, adm)

	var created site.Notice
	t.Run("create", func(t *testing.T) {
		body := []byte(`{"id": "ignored", "title": "Sports Day", "content": "Bring your **shoes**"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/notices", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarchall(t, rec.Body.Bytes(), &created)
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, "ignored", created.ID)
		assert.Equal(t, "Sports Day", created.Title)
		_, err := time.Parse("2006-01-02", created.Date)
		assert.NoError(t, err)

		notices := store.State().Data.Notices
		require.Len(t, notices, 2)
		assert.Equal(t, created, notices[0])
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/admin/notices/"+created.ID, token, []byte(`{"title": "Sports Week"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated site.Notice
		unmarchall(t, rec.Body.Bytes(), &updated)
		assert.Equal(t, "Sports Week", updated.Title)
		assert.Equal(t, created.Content, updated.Content)
		assert.Equal(t, created.Date, updated.Date)
	})

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "create anonymously",
			method:   http.MethodPost,
			path:     "/v1/admin/notices",
			body:     []byte(`{"title": "Spam"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "create blank title",
			method:   http.MethodPost,
			path:     "/v1/admin/notices",
			body:     []byte(`{"title": "  ", "content": "..."}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title": "this field cannot be blank"}`),
		},
		{
			name:     "update unknown",
			method:   http.MethodPatch,
			path:     "/v1/admin/notices/unknown",
			body:     []byte(`{"title": "Nope"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "delete unknown",
			method:   http.MethodDelete,
			path:     "/v1/admin/notices/unknown",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/notices/"+created.ID, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		notices := store.State().Data.Notices
		require.Len(t, notices, 1)
		assert.Equal(t, "1", notices[0].ID)
	})
}

func Test_contentApi_gallery(t *testing.T) {
	srv := setup(t)
	adm := createAdmin(t, "Admin", "admin@school.test")
	token := getToken(t, adm)

	req, rec := newAuthRequest(http.MethodPost, "/v1/admin/gallery", token, []byte(`{"url": "https://img.test/a.jpg"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var img site.GalleryImage
	unmarchall(t, rec.Body.Bytes(), &img)
	assert.Equal(t, "general", img.Category)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "missing url",
			method:   http.MethodPost,
			path:     "/v1/admin/gallery",
			body:     []byte(`{"caption": "No image"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"url": "this field is required"}`),
		},
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/admin/gallery",
			token:    token,
			wantData: marchallObj(t, store.State().Data.GalleryImages),
		},
	})
}

func Test_contentApi_latestUpdates(t *testing.T) {
	srv := setup(t)
	adm := createAdmin(t, "Admin", "admin@school.test")
	token := getToken(t, adm)

	req, rec := newAuthRequest(http.MethodPost, "/v1/admin/latest-updates", token, []byte(`{"content": "Exams start Monday", "date": "2024-03-01"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	updates := store.State().Data.LatestUpdates
	require.Len(t, updates, 4)
	assert.Equal(t, "Exams start Monday", updates[0].Content)
	assert.Equal(t, "2024-03-01", updates[0].Date)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "delete seeded update",
			method:   http.MethodDelete,
			path:     "/v1/admin/latest-updates/2",
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete it again",
			method:   http.MethodDelete,
			path:     "/v1/admin/latest-updates/2",
			token:    token,
			wantCode: http.StatusNotFound,
		},
	})
	assert.Len(t, store.State().Data.LatestUpdates, 3)
}

func Test_contentApi_founders(t *testing.T) {
	srv := setup(t)
	adm := createAdmin(t, "Admin", "admin@school.test")
	token := getToken(t, adm)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/v1/admin/founders",
			body:     []byte(`{"name": ""}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field cannot be blank"}`),
		},
		{
			name:     "update seeded founder",
			method:   http.MethodPatch,
			path:     "/v1/admin/founders/1",
			body:     []byte(`{"description": "Visionary"}`),
			token:    token,
			wantCode: http.StatusOK,
		},
	})

	founders := store.State().Data.FounderDetails
	require.Len(t, founders, 1)
	assert.Equal(t, "Dr. P. Narayana", founders[0].Name)
	assert.Equal(t, "Visionary", founders[0].Description)
}
