package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// WithHTTP fetches a manifest from an http(s) ref, retrying transient
// failures with constant backoff. Anything but a 2xx on the final
// attempt is an error.
func WithHTTP(client *http.Client, attempts uint64, backoff time.Duration) Resolver {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context, ref string) (io.Reader, error) {
		if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
			return nil, fmt.Errorf("not a http ref: %q", ref)
		}

		var body []byte
		err := retry.Do(ctx, retry.WithMaxRetries(attempts, retry.NewConstant(backoff)), func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
			if err != nil {
				return err
			}

			res, err := client.Do(req)
			if err != nil {
				return retry.RetryableError(err)
			}

			defer res.Body.Close()

			if res.StatusCode >= 500 {
				return retry.RetryableError(fmt.Errorf("fetch %q: status %d", ref, res.StatusCode))
			}

			if res.StatusCode < 200 || res.StatusCode >= 300 {
				return fmt.Errorf("fetch %q: status %d", ref, res.StatusCode)
			}

			body, err = io.ReadAll(res.Body)
			return err
		})
		if err != nil {
			return nil, err
		}

		return bytes.NewReader(body), nil
	}
}
