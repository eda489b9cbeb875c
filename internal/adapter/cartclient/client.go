// Package cartclient reads cart snapshots from the cart service over HTTP.
package cartclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rl1809/order-saga/internal/core/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	endpoint := c.baseURL + "/cart/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("call cart service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.CartSnapshot{}, fmt.Errorf("cart service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cart domain.CartSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}
