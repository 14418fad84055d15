package stacker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatialbytes/neonstack/core"
)

func testServer() *Server {
	bundle := core.NewBundle()
	bundle.Tables["ST_1_minute"] = tableFromRows(
		[]string{"siteID", "qfCount", "startDateTime"},
		map[string]any{
			"siteID":        "ARIK",
			"qfCount":       int64(9007199254740993),
			"startDateTime": time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	)
	bundle.Texts["readme_00041"] = "readme body"
	return NewServer(bundle)
}

func TestHandleTables(t *testing.T) {
	srv := httptest.NewServer(testServer().Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body struct {
		Tables []string `json:"tables"`
		Texts  []string `json:"texts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"ST_1_minute", "readme_00041"}, body.Tables)
	assert.Equal(t, []string{"readme_00041"}, body.Texts)
}

func TestHandleTable(t *testing.T) {
	srv := httptest.NewServer(testServer().Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tables/ST_1_minute")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body TableResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"siteID", "qfCount", "startDateTime"}, body.Columns)
	require.Len(t, body.Rows, 1)
	// large integers survive as strings
	assert.Equal(t, "9007199254740993", body.Rows[0]["qfCount"])
	assert.Equal(t, "2021-05-01T00:00:00Z", body.Rows[0]["startDateTime"])
}

func TestHandleTableNotFound(t *testing.T) {
	srv := httptest.NewServer(testServer().Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tables/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "no table named nope")
}

func TestHandleText(t *testing.T) {
	srv := httptest.NewServer(testServer().Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/texts/readme_00041")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "readme body\n", string(buf[:n]))
}

func TestHandleHealth(t *testing.T) {
	srv := httptest.NewServer(testServer().Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
