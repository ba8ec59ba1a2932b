package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchIfURLPassthrough(t *testing.T) {
	path, cleanup, err := fetchIfURL(context.Background(), "drawings/old.pdf")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "drawings/old.pdf", path)
}

func TestFetchIfURLDownloadsPDF(t *testing.T) {
	// A bare header is enough for content sniffing.
	body := []byte("%PDF-1.4\n%%EOF\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	path, cleanup, err := fetchIfURL(context.Background(), server.URL+"/rev-b.pdf")
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, data)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchIfURLRejectsNonPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not a drawing</body></html>"))
	}))
	defer server.Close()

	_, _, err := fetchIfURL(context.Background(), server.URL+"/page.html")
	assert.Error(t, err)
}
