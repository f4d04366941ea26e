package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/domain/model"
)

// HTTPClient wraps http.Client for the leaderboard endpoints.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus,
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Submit posts one form-encoded submission.
func (c *HTTPClient) Submit(ctx context.Context, sub Submission) error {
	form := url.Values{}
	form.Set("user_id", sub.UserID)
	form.Set("username", sub.Username)
	form.Set("total_damage", strconv.Itoa(sub.Damage))
	if sub.BandScore != "" {
		form.Set("band_score", sub.BandScore)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leaderboard/submit",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

// Top fetches GET /leaderboard?limit=n.
func (c *HTTPClient) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/leaderboard?limit="+strconv.Itoa(limit), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// Entry fetches GET /leaderboard/{user_id}.
func (c *HTTPClient) Entry(ctx context.Context, userID string) (repository.RankedEntry, error) {
	var out repository.RankedEntry
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/leaderboard/"+url.PathEscape(userID), nil)
	if err != nil {
		return out, err
	}
	err = c.do(req, &out)
	return out, err
}
