package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"

	"immoflow/services/whatsapp"
)

var whatsappOff = whatsapp.Config{}

type fakeMediaStore struct {
	name, contentType string
	body              []byte
	err               error
}

func (f *fakeMediaStore) Upload(_ context.Context, filename string, r io.Reader, _ int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.name, f.contentType = filename, contentType
	f.body, _ = io.ReadAll(r)
	return "https://cdn.immoflow.pe/assets/chat-media/chat_1.png", nil
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func postMedia(t *testing.T, mc *MediaController, body io.Reader, contentType string) (int, envelope) {
	t.Helper()
	app := fiber.New()
	app.Post("/dashboard/media", mc.Upload)
	req := httptest.NewRequest("POST", "/dashboard/media", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, env
}

func TestMediaUpload(t *testing.T) {
	fake := &fakeMediaStore{}
	mc := NewMediaController(fake, quietLogger())

	body, ct := multipartBody(t, "fachada.png", "image/png", []byte("png-bytes"))
	status, env := postMedia(t, mc, body, ct)
	if status != fiber.StatusCreated {
		t.Fatalf("status %d, %+v", status, env)
	}
	data := rowOf(t, env)
	if data["media_type"] != "image" || data["file_name"] != "fachada.png" || data["url"] == "" {
		t.Errorf("data = %v", data)
	}
	if fake.name != "fachada.png" || fake.contentType != "image/png" || string(fake.body) != "png-bytes" {
		t.Errorf("uploaded %q %q %q", fake.name, fake.contentType, fake.body)
	}
}

func TestMediaUploadErrors(t *testing.T) {
	status, env := postMedia(t, NewMediaController(nil, quietLogger()), nil, "")
	if status != fiber.StatusServiceUnavailable {
		t.Errorf("unconfigured: status %d, %+v", status, env)
	}

	status, _ = postMedia(t, NewMediaController(&fakeMediaStore{}, quietLogger()), nil, "")
	if status != fiber.StatusBadRequest {
		t.Errorf("missing file: status %d", status)
	}

	body, ct := multipartBody(t, "nota.ogg", "audio/ogg", []byte("ogg"))
	status, env = postMedia(t, NewMediaController(&fakeMediaStore{err: errors.New("bucket gone")}, quietLogger()), body, ct)
	if status != fiber.StatusInternalServerError || env.Error != "Error al subir el archivo" {
		t.Errorf("failed upload: status %d, %+v", status, env)
	}
}
