// clients contains the outbound adapters for the external providers the
// worker talks to: the X API for post search, Grok for embeddings and
// summarization, and Mapbox for geocoding.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// HttpClient wraps the stdlib client with the shared request plumbing the
// provider clients need: default headers, query encoding and non-2xx
// rejection with the response body in the error.
type HttpClient struct {
	header http.Header
	client *http.Client
}

func NewHttpClient(header http.Header) *HttpClient {
	if header == nil {
		header = http.Header{}
	}
	return &HttpClient{
		header: header,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Get issues a GET to uri with the provided query params appended.
func (c *HttpClient) Get(ctx context.Context, uri string, params map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.header.Clone()

	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return rejectNon2xx(res)
}

// PostJson issues a POST to uri with the body serialized as JSON.
func (c *HttpClient) PostJson(ctx context.Context, uri string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return rejectNon2xx(res)
}

// rejectNon2xx drains and closes the body of a non-2xx response and turns
// it into an error carrying the status and body text.
func rejectNon2xx(res *http.Response) (*http.Response, error) {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return res, nil
	}

	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return nil, errors.Errorf("non-2xx http code %d: %s", res.StatusCode, string(body))
}
