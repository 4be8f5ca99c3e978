package api

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PecataP/K8S-SLSA/config"
	"github.com/PecataP/K8S-SLSA/internal/accesslog"
	"github.com/PecataP/K8S-SLSA/internal/taskqueue"
)

func newTestServer(t *testing.T) (*Server, *accesslog.Store, *taskqueue.Queue) {
	t.Helper()

	opt := badger.DefaultOptions("").WithInMemory(true)
	db, err := badger.Open(opt)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := accesslog.NewStore(db)
	queue := taskqueue.NewQueue()
	t.Cleanup(queue.Close)

	return NewServer(store, queue), store, queue
}

func TestGreetAllMethodsAndPaths(t *testing.T) {
	s, _, _ := newTestServer(t)
	e := s.makeEcho()

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	paths := []string{"/", "/healthz", "/cert/generate", "/some/deep/path"}

	for _, m := range methods {
		for _, p := range paths {
			req := httptest.NewRequest(m, p, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, "%s %s", m, p)
			require.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType), "%s %s", m, p)
			require.Equal(t, Greeting, rec.Body.String(), "%s %s", m, p)
		}
	}
}

func TestGreetIgnoresContentNegotiation(t *testing.T) {
	s, _, _ := newTestServer(t)
	e := s.makeEcho()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAccept, "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, Greeting, rec.Body.String())
}

func TestGreetConcurrentRequests(t *testing.T) {
	s, _, _ := newTestServer(t)
	e := s.makeEcho()

	const clients = 50

	var wg sync.WaitGroup
	wg.Add(clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/client/%d", i), nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, Greeting, rec.Body.String())
		}(i)
	}
	wg.Wait()
}

func TestRequestsAreRecorded(t *testing.T) {
	s, store, queue := newTestServer(t)
	e := s.makeEcho()

	req := httptest.NewRequest(http.MethodPost, "/recorded/path", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	queue.Wait()

	recs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, http.MethodPost, recs[0].Method)
	require.Equal(t, "/recorded/path", recs[0].Path)
	require.NotEmpty(t, recs[0].Client)
}

func TestStartFailsOnBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	s, _, _ := newTestServer(t)
	err = s.Start(config.APIConf{Host: "127.0.0.1", Port: port})
	require.Error(t, err)
}

func TestServeOnConfiguredPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s, _, _ := newTestServer(t)
	go s.Start(config.APIConf{Host: "127.0.0.1", Port: port}) //nolint:errcheck

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(url)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 5*time.Second, 50*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, Greeting, string(body))
	require.Equal(t, "text/plain", resp.Header.Get(echo.HeaderContentType))

	require.NoError(t, s.Stop())
}
