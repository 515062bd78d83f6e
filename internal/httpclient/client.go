package httpclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls the generic outbound retry wrapper. Retries use a
// fixed delay between attempts, not exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Client wraps an http.Client and retries on network errors and 5xx responses.
// 4xx responses are returned to the caller unchanged.
type Client struct {
	http   *http.Client
	policy RetryPolicy
	logger *zap.Logger
}

// NewClient builds a retrying client. A nil base uses http.DefaultClient.
func NewClient(base *http.Client, policy RetryPolicy, logger *zap.Logger) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Delay <= 0 {
		policy.Delay = 500 * time.Millisecond
	}
	return &Client{http: base, policy: policy, logger: logger}
}

// Do sends the request, retrying failed attempts up to the policy budget.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if rewindErr := rewindBody(req); rewindErr != nil {
				return nil, rewindErr
			}
			select {
			case <-time.After(c.policy.Delay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, err = c.http.Do(req)
		if err != nil {
			c.logger.Warn("request attempt failed",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if resp.StatusCode >= 500 && attempt < c.policy.MaxAttempts {
			c.logger.Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func rewindBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}
