package notify

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

func testReport() *models.Report {
	return &models.Report{
		TotalCities:    12,
		CitiesSuccess:  10,
		CitiesErrors:   1,
		CitiesWarnings: 1,
		NewListings:    87,
		Duplicates:     245,
		Duration:       3*time.Minute + 42*time.Second,
		FinishedAt:     time.Date(2026, 8, 20, 6, 3, 42, 0, time.UTC),
	}
}

func TestFormatReport(t *testing.T) {
	got := FormatReport(testReport())

	for _, want := range []string{
		"🏆 <b>SCRAPING COMPLETED</b>",
		"✅ Successful cities: 10/12",
		"❌ Errors: 1 cities",
		"⚠️ Warnings: 1 cities (0 listings)",
		"⏱️ Duration: 3min 42s",
		"📊 New listings: 87",
		"🔄 Duplicates avoided: 245",
		"🗓️ Finished: 2026-08-20 06:03:42",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestSendMessage(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(&config.TelegramConfig{BotToken: "token", ChatID: "42"}, srv.Client())
	tg.apiBase = srv.URL

	if err := tg.SendMessage("hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if form.Get("chat_id") != "42" {
		t.Fatalf("unexpected chat_id %q", form.Get("chat_id"))
	}
	if form.Get("text") != "hello" {
		t.Fatalf("unexpected text %q", form.Get("text"))
	}
	if form.Get("parse_mode") != "HTML" {
		t.Fatalf("unexpected parse_mode %q", form.Get("parse_mode"))
	}
}

func TestSendMessage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram(&config.TelegramConfig{BotToken: "token", ChatID: "42"}, srv.Client())
	tg.apiBase = srv.URL

	if err := tg.SendMessage("hello"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestSendMessage_NotConfigured(t *testing.T) {
	tg := NewTelegram(&config.TelegramConfig{}, nil)
	if err := tg.SendMessage("hello"); err != nil {
		t.Fatalf("unconfigured notifier must be a no-op, got %v", err)
	}
}
