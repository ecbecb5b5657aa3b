package whatsapp

import (
	"context"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"immoflow/models"
)

func TestSessionMessengerUsesSettings(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	var paths []string
	go func() {
		_ = fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
			paths = append(paths, string(ctx.Path()))
			ctx.SetBodyString(`{"key":{"id":"W1"}}`)
		})
	}()
	defer ln.Close()

	settings := &models.Settings{}
	m := SessionMessenger{
		Base:     Config{BaseURL: "http://evolution.local", APIKey: "key"},
		Settings: func() *models.Settings { return settings },
		Options:  []Option{WithDial(func(string) (net.Conn, error) { return ln.Dial() })},
	}

	id, err := m.SendText(context.Background(), "987654321", "Hola")
	if err != nil || id != "" {
		t.Fatalf("unconfigured send = %q, %v; want skipped", id, err)
	}

	settings.EvolutionInstanceName = "oficina"
	if id, err := m.SendText(context.Background(), "987654321", "Hola"); err != nil || id != "W1" {
		t.Fatalf("SendText = %q, %v", id, err)
	}
	if _, err := m.SendMedia(context.Background(), "987654321", "audio", "https://cdn/nota.ogg", ""); err != nil {
		t.Fatalf("SendMedia audio: %v", err)
	}
	if _, err := m.SendMedia(context.Background(), "987654321", "image", "https://cdn/foto.png", "Fachada"); err != nil {
		t.Fatalf("SendMedia image: %v", err)
	}

	want := []string{"/message/sendText/oficina", "/message/sendWhatsAppAudio/oficina", "/message/sendMedia/oficina"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %s, want %s", i, paths[i], want[i])
		}
	}
}
