package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipResponseCompressesSuccesses(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.Header().Set("Content-Type", "application/json")
		response.WriteHeader(http.StatusOK)
		response.Write([]byte(`{"username":"alice"}`))
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	result := recorder.Result()
	defer result.Body.Close()

	require.Equal(t, "gzip", result.Header.Get("Content-Encoding"))

	reader, err := gzip.NewReader(result.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, string(body))
}

func TestGzipResponseLeavesErrorBodiesReadable(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		http.Error(response, "authentication required", http.StatusUnauthorized)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	result := recorder.Result()
	defer result.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	assert.Empty(t, result.Header.Get("Content-Encoding"))

	body, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, "authentication required\n", string(body))
}

func TestGzipResponseSkipsClientsWithoutGzip(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.Write([]byte("plain"))
	}))

	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	result := recorder.Result()
	defer result.Body.Close()

	assert.Empty(t, result.Header.Get("Content-Encoding"))
	assert.Equal(t, "plain", recorder.Body.String())
}

func TestUngzipRequest(t *testing.T) {
	compressed := bytes.Buffer{}
	writer := gzip.NewWriter(&compressed)
	_, err := writer.Write([]byte(`{"title":"My Blog"}`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	received := ""
	handler := UngzipRequest(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		body, readErr := io.ReadAll(request.Body)
		require.NoError(t, readErr)
		received = string(body)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/links", &compressed)
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.JSONEq(t, `{"title":"My Blog"}`, received)
}

func TestUngzipRequestRejectsGarbage(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		t.Fatal("handler must not run on an unreadable body")
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader("not gzip at all"))
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
