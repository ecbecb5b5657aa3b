package whatsapp

import (
	"context"

	"immoflow/models"
)

// SessionMessenger resolves the Evolution connection at send time from the
// base configuration overlaid with the session's settings row, so changes
// saved from the dashboard apply without a restart. Sends are skipped, not
// failed, while the connection is incomplete.
type SessionMessenger struct {
	Base     Config
	Settings func() *models.Settings
	Options  []Option
}

func (m SessionMessenger) client() (*Client, bool) {
	cfg := m.Base
	if m.Settings != nil {
		cfg = cfg.WithSettings(m.Settings())
	}
	if !cfg.Configured() {
		return nil, false
	}
	return New(cfg, m.Options...), true
}

func (m SessionMessenger) SendText(ctx context.Context, phone, text string) (string, error) {
	c, ok := m.client()
	if !ok {
		return "", nil
	}
	return c.SendText(ctx, phone, text)
}

// SendMedia routes audio to the voice note endpoint.
func (m SessionMessenger) SendMedia(ctx context.Context, phone, mediaType, mediaURL, caption string) (string, error) {
	c, ok := m.client()
	if !ok {
		return "", nil
	}
	if mediaType == "audio" {
		return c.SendAudio(ctx, phone, mediaURL)
	}
	return c.SendMedia(ctx, phone, mediaType, mediaURL, caption)
}
