package hotelservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
)

// Client is the synchronous surface of the hotel service the orchestrator
// needs: price lookups, hotel names for notifications, location search.
// The hotel service is treated as potentially unavailable; every call has a
// bounded timeout and failures come back as domain.ErrUpstream.
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

type Hotel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Rooms    []Room `json:"rooms"`
}

type Room struct {
	RoomNumber  int   `json:"roomNumber"`
	Price       int64 `json:"price"`
	IsAvailable bool  `json:"isAvailable"`
}

func (c *Client) RoomPrice(ctx context.Context, hotelID string, roomNumber int) (int64, error) {
	u := fmt.Sprintf("%s/v1/hotels/%s/rooms/%d/price", c.baseURL, hotelID, roomNumber)
	var out struct {
		Price int64 `json:"price"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return 0, err
	}
	return out.Price, nil
}

// HotelName degrades to a placeholder when the lookup fails; callers use it
// for notification payloads only.
func (c *Client) HotelName(ctx context.Context, hotelID string) string {
	u := fmt.Sprintf("%s/v1/hotels/%s", c.baseURL, hotelID)
	var out Hotel
	if err := c.getJSON(ctx, u, &out); err != nil || out.Name == "" {
		return "Unknown Hotel"
	}
	return out.Name
}

func (c *Client) Search(ctx context.Context, location string) ([]Hotel, error) {
	u := fmt.Sprintf("%s/v1/hotels/search?location=%s", c.baseURL, url.QueryEscape(location))
	var out struct {
		Results []Hotel `json:"results"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return fmt.Errorf("%w: hotel service returned %d", domain.ErrUpstream, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}
