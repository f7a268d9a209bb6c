package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RequestTimeout bounds every outbound provider call. A hung provider
// surfaces as an exchange or profile error instead of a hung request.
const RequestTimeout = 10 * time.Second

// NewHTTPClient returns the client adapters use for provider API calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}

// WithClient makes oauth2's Exchange use the given client, so token
// endpoint calls share the adapter's timeout.
func WithClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// GetJSON performs a bearer-authenticated GET and decodes the JSON body.
// Non-2xx responses are returned as errors.
func GetJSON(ctx context.Context, client *http.Client, url, bearer, accept string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
