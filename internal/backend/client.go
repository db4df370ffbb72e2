// Package backend talks to the platform's REST backend, which owns events,
// organizations and registrations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"ms-discovery/internal/config"
	"ms-discovery/internal/models"
)

var ErrEventNotFound = errors.New("backend: event not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client fetches events from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client whose requests carry a bearer token. A token URL
// selects the client-credentials grant, otherwise the static service token
// is sent as is. base supplies timeouts and transport.
func NewClient(cfg config.Config, base *http.Client) *Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	httpClient := base
	switch {
	case cfg.BackendTokenURL != "":
		log.Printf("Using client credentials grant against %s for backend requests", cfg.BackendTokenURL)
		cc := &clientcredentials.Config{
			ClientID:     cfg.BackendClientID,
			ClientSecret: cfg.BackendClientSecret,
			TokenURL:     cfg.BackendTokenURL,
		}
		httpClient = cc.Client(ctx)
	case cfg.BackendServiceToken != "":
		log.Println("Using static service token for backend requests")
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BackendServiceToken,
			TokenType:   "Bearer",
		}))
	default:
		log.Println("No backend credentials configured, sending unauthenticated requests")
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = base.Timeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		httpClient: httpClient,
	}
}

// ListEvents returns every event the backend exposes.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	body, err := c.get(ctx, "/api/events")
	if err != nil {
		return nil, err
	}

	events, err := decodeEventList(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding events response: %w", err)
	}
	log.Printf("Fetched %d events from backend", len(events))
	return events, nil
}

// GetEvent returns one event by id.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	body, err := c.get(ctx, "/api/events/"+url.PathEscape(eventID))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	event, err := decodeEvent(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding event %s: %w", eventID, err)
	}
	return event, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to %s: %w", endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Error closing response body: %v", cerr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response from %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// The backend answers either with a bare JSON array or an envelope such as
// {"events": [...]} or {"data": [...]}. Elements that do not decode are
// logged and skipped.
func decodeEventList(body []byte) ([]models.Event, error) {
	body = bytes.TrimSpace(body)
	var items []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Events []json.RawMessage `json:"events"`
			Data   []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		items = envelope.Events
		if items == nil {
			items = envelope.Data
		}
	}

	events := make([]models.Event, 0, len(items))
	for i, item := range items {
		var event models.Event
		if err := json.Unmarshal(item, &event); err != nil {
			log.Printf("Skipping backend event %d that does not decode: %v", i, err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeEvent(body []byte) (*models.Event, error) {
	var envelope struct {
		Event *models.Event `json:"event"`
		Data  *models.Event `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Event != nil {
			return envelope.Event, nil
		}
		if envelope.Data != nil {
			return envelope.Data, nil
		}
	}

	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if event.ID == "" {
		return nil, errors.New("event without id")
	}
	return &event, nil
}
