package userservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
)

// Client looks up user profiles for notification payloads. The directory is
// an external collaborator; lookups time out after 5s.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type Profile struct {
	Email string
	Name  string
}

func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	u := fmt.Sprintf("%s/v1/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Profile{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Profile{}, domain.ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Profile{}, fmt.Errorf("%w: user service returned %d", domain.ErrUpstream, res.StatusCode)
	}

	var out struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Profile{}, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	if out.User.Email == "" {
		return Profile{}, domain.ErrNotFound
	}
	name := out.User.Name
	if name == "" {
		name = "Valued Customer"
	}
	return Profile{Email: out.User.Email, Name: name}, nil
}
