package deviceapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client talks to the device service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StatusError is returned when the device service answers with a
// non-2xx status. It carries the raw body for logging.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type CreateOrganizationRequest struct {
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Persist bool   `json:"persist"`
}

type Organization struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Persist bool   `json:"persist"`
}

type CreateDeviceRequest struct {
	UID            string `json:"uid"`
	Serial         string `json:"serial"`
	OrganizationID uint   `json:"organization_id"`
	AllowUpdates   bool   `json:"allow_updates"`
	Active         bool   `json:"active"`
}

type Device struct {
	ID             uint   `json:"id"`
	UID            string `json:"uid"`
	Serial         string `json:"serial"`
	OrganizationID uint   `json:"organization_id"`
}

// MessageEnvelope wraps one serialized telemetry message for ingestion.
type MessageEnvelope struct {
	DeviceUID string `json:"device_uid"`
	Message   string `json:"message"`
	SentVia   string `json:"sent_via"`
}

// SendResult reports the raw outcome of a message POST. The caller
// decides what counts as success; the ingestion endpoint only
// acknowledges with a strict 200.
type SendResult struct {
	Code int
	Body string
}

func NewClient(config *Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("device service base URL is required")
	}

	return &Client{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// CreateOrganization registers a new organization and returns it with
// the server-assigned id.
func (c *Client) CreateOrganization(req *CreateOrganizationRequest) (*Organization, error) {
	var org Organization
	if err := c.postJSON("/api/v1/organizations", req, &org); err != nil {
		return nil, err
	}

	return &org, nil
}

// CreateDevice registers a new device and returns it with the
// server-assigned id.
func (c *Client) CreateDevice(req *CreateDeviceRequest) (*Device, error) {
	var device Device
	if err := c.postJSON("/api/v1/devices", req, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// SendMessage posts one telemetry envelope to the ingestion endpoint.
// Any HTTP response, whatever the status, is returned as a SendResult;
// only transport-level failures surface as errors.
func (c *Client) SendMessage(env *MessageEnvelope) (*SendResult, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode the message envelope")
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/v1/devices/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not deliver the message")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return &SendResult{Code: resp.StatusCode, Body: string(respBody)}, nil
}

func (c *Client) postJSON(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "could not encode the request payload")
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "POST %s failed", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "could not read the response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "could not decode the response body")
	}

	return nil
}
