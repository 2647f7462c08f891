package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

func webTestRouter(t *testing.T) (*Server, *httprouter.Router) {
	t.Helper()

	srv, _, _ := testServer(t, nil, testCatalog(2))

	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck(srv.cfg))
	mux.GET("/version", serveVersion(srv.cfg))
	mux.GET("/robots.txt", serveRobots(srv.cfg))
	mux.GET("/rooms", serveLobby(srv.cfg, srv))
	mux.GET("/room/:code/qr", serveRoomQR(srv.cfg, srv))

	return srv, mux
}

func get(mux *httprouter.Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestHealthAndVersionEndpoints(t *testing.T) {
	_, mux := webTestRouter(t)

	w := get(mux, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Ok\n", w.Body.String())
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = get(mux, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), releaseVersion)

	w = get(mux, "/robots.txt")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Disallow: /")
}

func TestLobbyEndpoint(t *testing.T) {
	srv, mux := webTestRouter(t)

	makeRoom(t, srv, "alice", roomCreateData{Code: "PUBL", Name: "open"})
	makeRoom(t, srv, "bob", roomCreateData{Code: "PRIV", Privacy: "private"})

	w := get(mux, "/rooms")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var lobby []roomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lobby))
	require.Len(t, lobby, 2)

	flags := make(map[string]bool, len(lobby))
	for _, r := range lobby {
		flags[r.Code] = r.Private
	}
	require.False(t, flags["PUBL"])
	require.True(t, flags["PRIV"])
}

func TestRoomQREndpoint(t *testing.T) {
	srv, mux := webTestRouter(t)

	makeRoom(t, srv, "alice", roomCreateData{Code: "ABCD"})

	w := get(mux, "/room/ABCD/qr")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG", w.Body.String()[:4])

	w = get(mux, "/room/ZZZZ/qr")
	require.Equal(t, http.StatusNotFound, w.Code)
}
