package utils

import (
	"html"
	"reflect"
	"strings"
	"testing"
	"time"
)

type appointmentInput struct {
	PropertyID    string `json:"property_id" validate:"required"`
	ClientName    string `json:"client_name" validate:"required"`
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	Notes         string `json:"notes"`
}

func TestMissingFieldsUsesJSONNames(t *testing.T) {
	in := appointmentInput{ClientName: "Ana"}
	got := MissingFields(&in)
	if !reflect.DeepEqual(got, []string{"property_id", "scheduled_date"}) {
		t.Errorf("MissingFields = %v", got)
	}
	if got := RequiredFields(in); !reflect.DeepEqual(got, []string{"property_id", "client_name", "scheduled_date"}) {
		t.Errorf("RequiredFields = %v", got)
	}
}

func TestValidateStructReportsFormat(t *testing.T) {
	in := appointmentInput{PropertyID: "p", ClientName: "Ana", ScheduledDate: "10/03/2025"}
	err := ValidateStruct(&in)
	if err == nil || !strings.Contains(err.Error(), "scheduled_date must match the format 2006-01-02") {
		t.Errorf("unexpected error %v", err)
	}
	in.ScheduledDate = "2025-03-10"
	if err := ValidateStruct(&in); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("u2", "ejecutivo", "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	claims, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.UserID != "u2" || claims.Role != "ejecutivo" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if _, err := ParseSessionToken(token, "other"); err == nil {
		t.Error("expected signature mismatch")
	}
	expired, _ := GenerateSessionToken("u2", "ejecutivo", "secret", -time.Minute)
	if _, err := ParseSessionToken(expired, "secret"); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestRenderTaskReminder(t *testing.T) {
	body, err := RenderEmail("task_reminder", map[string]string{
		"AdvisorName": "Juan",
		"Description": "Llamar para coordinar visita",
		"Time":        "10:30",
		"LeadName":    "Carlos",
		"LeadPhone":   "+51900111222",
	})
	if err != nil {
		t.Fatalf("RenderEmail: %v", err)
	}
	for _, want := range []string{"Hola Juan", "Llamar para coordinar visita", "10:30 con Carlos (+51900111222)"} {
		if !strings.Contains(html.UnescapeString(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
	if _, err := RenderEmail("missing", nil); err == nil {
		t.Error("expected unknown template error")
	}
}

func TestMailerRejectsBadRecipient(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "crm@immoflow.com"})
	err := m.Send(EmailData{To: []string{"not-an-address"}, Template: "task_reminder"})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient") {
		t.Errorf("unexpected error %v", err)
	}
	var disabled *Mailer
	if disabled.Enabled() {
		t.Error("nil mailer must be disabled")
	}
}
