package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
)

const fetchTimeout = 60 * time.Second

// fetchIfURL resolves an input reference to a local file. Plain paths
// pass through untouched; http(s) URLs are downloaded to a temp file.
// The returned cleanup removes the temp file and is a no-op for plain
// paths.
func fetchIfURL(ctx context.Context, ref string) (string, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return ref, noop, nil
	}
	if _, err := url.Parse(ref); err != nil {
		return "", noop, fmt.Errorf("invalid URL %q: %w", ref, err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 5 * time.Second
	client.Logger = log
	if token := os.Getenv("COMPARESET_BEARER_TOKEN"); token != "" {
		client.HTTPClient = NewHttpClientWithBearerTransport(token)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", ref, nil)
	if err != nil {
		return "", noop, fmt.Errorf("creating request for %s: %w", ref, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("downloading %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", noop, fmt.Errorf("downloading %s: unexpected status %d", ref, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "compareset-*.pdf")
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("saving %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, err
	}

	mtype, err := mimetype.DetectFile(tmp.Name())
	if err != nil {
		cleanup()
		return "", noop, err
	}
	if !mtype.Is("application/pdf") {
		cleanup()
		return "", noop, fmt.Errorf("downloaded %s is %s, not a PDF", ref, mtype.String())
	}

	log.Debugf("Downloaded %s to %s", ref, tmp.Name())
	return tmp.Name(), cleanup, nil
}
