package spider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDecodesCharset(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	}))
	defer srv.Close()

	f := NewFetchService(WithTimeout(time.Second))
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", doc.FindFirst("p").Text())
	assert.Equal(t, DefaultUserAgent, ua.Load())
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetchService(WithRetries(3))
	_, err := f.Fetch(context.Background(), srv.URL+"/xo-so-mien-nam.html")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<table class="bkqmiennam"></table>`))
	}))
	defer srv.Close()

	f := NewFetchService(WithRetries(2), WithUserAgent("xoso-test"))
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotNil(t, doc.FindFirst("table.bkqmiennam"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetchService(WithRetries(0))
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetchService().Fetch(ctx, srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, context.Canceled)
}
