package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
	"voice-butler/internal/infra"
)

var errEntityNotFound = errors.New("entity not found")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// Entity represents a Home Assistant entity
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed"`
}

func (c *Client) Name() string {
	return "homeassistant"
}

// Open checks that the entity exists. An unreachable Home Assistant makes the
// device simulated; an unknown entity is a configuration error.
func (c *Client) Open(ctx context.Context, spec domain.DeviceSpec) (application.Line, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("homeassistant.url not set: %w", domain.ErrHardwareUnavailable)
	}
	if !strings.Contains(spec.Address, ".") {
		return nil, fmt.Errorf("invalid entity id %q", spec.Address)
	}

	if _, err := c.GetState(ctx, spec.Address); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("home assistant unreachable: %w: %w", domain.ErrHardwareUnavailable, err)
		}
		return nil, err
	}

	return &entityLine{client: c, entityID: spec.Address}, nil
}

func (c *Client) GetState(ctx context.Context, entityID string) (*Entity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/states/"+entityID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching state of %s: %w", entityID, err)
	}

	var entity Entity
	if err := json.Unmarshal(resp, &entity); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return &entity, nil
}

// CallService posts to /api/services/{domain}/{service}.
func (c *Client) CallService(ctx context.Context, service, entityID string, data map[string]any) error {
	// e.g. "light.turn_on" -> "light", "turn_on"
	parts := strings.SplitN(service, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid service format: %s", service)
	}

	if data == nil {
		data = make(map[string]any)
	}
	data["entity_id"] = entityID

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := fmt.Sprintf("/api/services/%s/%s", parts[0], parts[1])
	if _, err := c.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("calling %s: %w", service, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		case resp.StatusCode == http.StatusNotFound:
			return infra.Permanent(errEntityNotFound)
		case infra.IsRetryableHTTPStatus(resp.StatusCode):
			return fmt.Errorf("home assistant API error %d (retryable): %s", resp.StatusCode, string(respBody))
		case resp.StatusCode >= 400:
			return infra.Permanent(fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

type entityLine struct {
	client   *Client
	entityID string
}

func (l *entityLine) entityDomain() string {
	return strings.SplitN(l.entityID, ".", 2)[0]
}

func (l *entityLine) Set(ctx context.Context, level bool) error {
	service := ".turn_off"
	if level {
		service = ".turn_on"
	}
	return l.client.CallService(ctx, l.entityDomain()+service, l.entityID, nil)
}

// SetSetpoint accepts values such as "26", "26C" or "26.5°C".
func (l *entityLine) SetSetpoint(ctx context.Context, value string) error {
	temp, err := parseTemperature(value)
	if err != nil {
		return err
	}
	return l.client.CallService(ctx, "climate.set_temperature", l.entityID, map[string]any{
		"temperature": temp,
	})
}

func (l *entityLine) Close() error {
	return nil
}

func parseTemperature(value string) (float64, error) {
	v := strings.TrimSpace(value)
	v = strings.TrimRight(v, "CcFf")
	v = strings.TrimSuffix(v, "°")
	v = strings.TrimSuffix(v, "度")
	temp, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid setpoint %q: %w", value, err)
	}
	return temp, nil
}
