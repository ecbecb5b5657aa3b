// Package whatsapp talks to an Evolution API instance to deliver chat
// messages to leads.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"immoflow/models"
)

const defaultTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("whatsapp: evolution api is not configured")

type Config struct {
	BaseURL  string
	APIKey   string
	Instance string
	Timeout  time.Duration
}

// Configured reports whether every connection setting is present.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.Instance != ""
}

// WithSettings overrides c with the values stored in the settings row.
func (c Config) WithSettings(s *models.Settings) Config {
	if s == nil {
		return c
	}
	if s.EvolutionAPIURL != "" {
		c.BaseURL = s.EvolutionAPIURL
	}
	if s.EvolutionAPIKey != "" {
		c.APIKey = s.EvolutionAPIKey
	}
	if s.EvolutionInstanceName != "" {
		c.Instance = s.EvolutionInstanceName
	}
	return c
}

type Client struct {
	cfg  Config
	http *fasthttp.Client
}

type Option func(*Client)

// WithDial replaces the TCP dialer, mostly for in-memory listeners.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:         "immoflow",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormatPhone keeps digits only and adds Peru's country code to bare
// 9-digit mobile numbers.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 9 && strings.HasPrefix(digits, "9") {
		return "51" + digits
	}
	return digits
}

type sendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Message  any    `json:"message"`
	Response any    `json:"response"`
	Error    string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("apikey", c.cfg.APIKey)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("whatsapp: encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("whatsapp: %s %s: %w", method, path, err)
	}
	if status := resp.StatusCode(); status >= 400 {
		return fmt.Errorf("whatsapp: %s %s: status %d: %s", method, path, status, strings.TrimSpace(string(resp.Body())))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("whatsapp: decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, path string, body any) (string, error) {
	var resp sendResponse
	if err := c.do(ctx, fasthttp.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	if resp.Key.ID == "" {
		msg := resp.Error
		if msg == "" {
			msg = "message was not accepted"
		}
		return "", fmt.Errorf("whatsapp: %s", msg)
	}
	return resp.Key.ID, nil
}

// SendText delivers a text message and returns its WhatsApp id.
func (c *Client) SendText(ctx context.Context, phone, text string) (string, error) {
	return c.send(ctx, "/message/sendText/"+c.cfg.Instance, map[string]string{
		"number": FormatPhone(phone),
		"text":   text,
	})
}

// SendMedia delivers an image, video or document already reachable at
// mediaURL.
func (c *Client) SendMedia(ctx context.Context, phone, mediaType, mediaURL, caption string) (string, error) {
	return c.send(ctx, "/message/sendMedia/"+c.cfg.Instance, map[string]string{
		"number":    FormatPhone(phone),
		"mediatype": mediaType,
		"media":     mediaURL,
		"caption":   caption,
	})
}

// SendAudio delivers a voice note.
func (c *Client) SendAudio(ctx context.Context, phone, audioURL string) (string, error) {
	return c.send(ctx, "/message/sendWhatsAppAudio/"+c.cfg.Instance, map[string]string{
		"number": FormatPhone(phone),
		"audio":  audioURL,
	})
}

// Connected reports whether the instance is paired with a phone.
func (c *Client) Connected(ctx context.Context) (bool, error) {
	var resp struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
		State string `json:"state"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, "/instance/connectionState/"+c.cfg.Instance, nil, &resp); err != nil {
		return false, err
	}
	state := resp.Instance.State
	if state == "" {
		state = resp.State
	}
	return state == "open", nil
}
