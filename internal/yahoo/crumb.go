package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidCrumb is returned when the crumb endpoint answers with something other than a crumb.
var ErrInvalidCrumb = errors.New("invalid crumb")

// crumbPath answers with the crumb bound to the current session cookie.
const crumbPath = "/v1/test/getcrumb"

// sessionCrumb returns the cached crumb, establishing a cookie session and fetching one if needed.
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()

	if c.crumb != "" {
		return c.crumb, nil
	}

	if err := c.fetchCookie(ctx); err != nil {
		return "", err
	}
	crumb, err := c.fetchCrumb(ctx)
	if err != nil {
		return "", err
	}

	c.crumb = crumb
	c.logger.Debug("obtained yahoo crumb")
	return crumb, nil
}

// invalidateCrumb drops stale from the cache unless another caller already replaced it.
func (c *Client) invalidateCrumb(stale string) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumb == stale {
		c.crumb = ""
	}
}

// fetchCookie visits the cookie page; the response status is irrelevant, only the Set-Cookie headers are kept.
func (c *Client) fetchCookie(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return fmt.Errorf("create cookie request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get cookie: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) fetchCrumb(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+crumbPath, nil)
	if err != nil {
		return "", fmt.Errorf("create crumb request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if u, err := url.Parse(c.cookieURL); err == nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		req.Header.Set("Origin", origin)
		req.Header.Set("Referer", origin+"/")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get crumb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read crumb: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    "crumb: " + http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<>{} ") {
		return "", fmt.Errorf("get crumb: %w", ErrInvalidCrumb)
	}
	return crumb, nil
}

// getWithCrumb performs a GET that requires a session crumb. A 401 means the crumb or its
// cookie expired; the crumb is refreshed and the request repeated once.
func (c *Client) getWithCrumb(ctx context.Context, path string, query url.Values, result any) error {
	for attempt := 0; ; attempt++ {
		crumb, err := c.sessionCrumb(ctx)
		if err != nil {
			return err
		}

		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("crumb", crumb)

		err = c.get(ctx, path, q, result)
		var apiErr *APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.logger.Debug("crumb rejected, refreshing", "path", path)
			c.invalidateCrumb(crumb)
			continue
		}
		return err
	}
}
