package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/site"
)

func readSite(t *testing.T, conn *websocket.Conn) site.SiteContent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var sc site.SiteContent
	require.NoError(t, conn.ReadJSON(&sc))
	return sc
}

func Test_liveHub(t *testing.T) {
	srv := setup(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/site/live"

	t.Run("foreign origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.test"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		if assert.NotNil(t, resp) {
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		}
	})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{conf.FrontendBaseURL}})
	require.NoError(t, err)
	defer conn.Close()

	initial := readSite(t, conn)
	assert.Equal(t, "New Narayana School", initial.SchoolName)
	assert.Equal(t, 0, initial.PageVisits)

	resp, err := http.Post(ts.URL+"/v1/site/visits", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pushed := readSite(t, conn)
	assert.Equal(t, 1, pushed.PageVisits)
	assert.Empty(t, pushed.AdmissionInquiries)

	t.Run("records are not pushed", func(t *testing.T) {
		body := strings.NewReader(`{"studentName": "Asha", "classApplied": "5", "fatherName": "Ravi", "primaryContact": "9876543210"}`)
		resp, err := http.Post(ts.URL+"/v1/admissions", "application/json", body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		pushed := readSite(t, conn)
		assert.Empty(t, pushed.AdmissionInquiries)
		assert.Len(t, store.State().Data.AdmissionInquiries, 1)
	})

	t.Run("server shutdown closes the connection", func(t *testing.T) {
		require.NoError(t, srv.Close())

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
	})
}

func Test_liveHub_joinDuringTransitions(t *testing.T) {
	srv := setup(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	const visits = 5
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < visits; i++ {
			req, rec := newRequest(http.MethodPost, "/v1/site/visits")
			srv.ServeHTTP(rec, req)
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/site/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{conf.FrontendBaseURL}})
	require.NoError(t, err)
	defer conn.Close()
	<-done

	// whenever the client joined, it ends up with the latest document & never goes back in time
	last := -1
	for last < visits {
		sc := readSite(t, conn)
		assert.GreaterOrEqual(t, sc.PageVisits, last)
		last = sc.PageVisits
	}
	assert.Equal(t, visits, store.State().Data.PageVisits)
}
