package tuya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
	"voice-butler/internal/infra"
)

type Client struct {
	clientID   string
	secret     string
	baseURL    string
	switchCode string
	httpClient *http.Client
	retry      infra.RetryConfig

	mu       sync.RWMutex
	token    string
	expireAt time.Time
}

func NewClient(clientID, secret, region, switchCode string) *Client {
	baseURL := "https://openapi.tuyaus.com"
	switch strings.ToLower(region) {
	case "eu":
		baseURL = "https://openapi.tuyaeu.com"
	case "cn":
		baseURL = "https://openapi.tuyacn.com"
	case "in":
		baseURL = "https://openapi.tuyain.com"
	}

	return NewClientWithURL(clientID, secret, baseURL, switchCode)
}

func NewClientWithURL(clientID, secret, baseURL, switchCode string) *Client {
	if switchCode == "" {
		switchCode = "switch_1"
	}
	return &Client{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		switchCode: switchCode,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

type apiResult struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) Name() string {
	return "tuya"
}

// Open looks the device up in the cloud. Missing credentials or an
// unreachable cloud make the device simulated.
func (c *Client) Open(ctx context.Context, spec domain.DeviceSpec) (application.Line, error) {
	if c.clientID == "" || c.secret == "" {
		return nil, fmt.Errorf("tuya credentials not set: %w", domain.ErrHardwareUnavailable)
	}
	if spec.Address == "" {
		return nil, fmt.Errorf("device %s: tuya device id missing", spec.Name)
	}

	var device struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Online bool   `json:"online"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1.0/iot-03/devices/"+spec.Address, nil, &device); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("tuya cloud unreachable: %w: %w", domain.ErrHardwareUnavailable, err)
		}
		return nil, fmt.Errorf("looking up tuya device %s: %w", spec.Address, err)
	}

	return &deviceLine{client: c, deviceID: spec.Address}, nil
}

// SendCommands posts data point commands to one device.
func (c *Client) SendCommands(ctx context.Context, deviceID string, commands []map[string]any) error {
	body, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		return fmt.Errorf("marshaling commands: %w", err)
	}

	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/commands", deviceID)
	if err := c.call(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("executing command: %w", err)
	}
	return nil
}

// call performs a signed request and decodes the result field into out.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result apiResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("tuya error: %s", result.Msg)
	}
	if out != nil && len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("parsing result: %w", err)
		}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	var respBody []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("client_id", c.clientID)
		req.Header.Set("access_token", token)
		req.Header.Set("sign", c.calcSign(timestamp, token, method, path, body))
		req.Header.Set("t", timestamp)
		req.Header.Set("sign_method", "HMAC-SHA256")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("tuya API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}
		if resp.StatusCode >= 400 {
			return infra.Permanent(fmt.Errorf("tuya API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		return nil
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	path := "/v1.0/token?grant_type=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("client_id", c.clientID)
	req.Header.Set("sign", c.calcSign(timestamp, "", http.MethodGet, path, nil))
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}

	var tokenResp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
	}

	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("parsing token response: %w", err)
	}

	if !tokenResp.Success {
		return fmt.Errorf("token error: %s", tokenResp.Msg)
	}

	c.token = tokenResp.Result.AccessToken
	c.expireAt = time.Now().Add(time.Duration(tokenResp.Result.ExpireTime) * time.Second)

	return nil
}

func (c *Client) calcSign(timestamp, token, method, path string, body []byte) string {
	str := c.clientID + token + timestamp + stringToSign(method, path, body)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(str))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func stringToSign(method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + path
}

type deviceLine struct {
	client   *Client
	deviceID string
}

func (l *deviceLine) Set(ctx context.Context, level bool) error {
	return l.client.SendCommands(ctx, l.deviceID, []map[string]any{
		{"code": l.client.switchCode, "value": level},
	})
}

// SetSetpoint sends temp_set, which Tuya thermostats take in whole degrees.
func (l *deviceLine) SetSetpoint(ctx context.Context, value string) error {
	v := strings.TrimSpace(value)
	v = strings.TrimRight(v, "CcFf°度")
	temp, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid setpoint %q: %w", value, err)
	}
	return l.client.SendCommands(ctx, l.deviceID, []map[string]any{
		{"code": "temp_set", "value": int(math.Round(temp))},
	})
}

func (l *deviceLine) Close() error {
	return nil
}
