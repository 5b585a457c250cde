package notify

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

// Telegram delivers run reports through the Telegram Bot API. Send
// failures degrade to a console echo of the message; they never abort
// the run.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	apiBase  string
}

func NewTelegram(cfg *config.TelegramConfig, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
		apiBase:  "https://api.telegram.org",
	}
}

func (t *Telegram) SendMessage(text string) error {
	if t.botToken == "" || t.chatID == "" {
		log.Printf("Telegram not configured, message: %s", text)
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	resp, err := t.client.PostForm(endpoint, form)
	if err != nil {
		log.Printf("Warning: telegram send failed: %v", err)
		log.Printf("Telegram message (not sent): %s", text)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("telegram error %d: %s", resp.StatusCode, string(body))
		log.Printf("Warning: %v", err)
		log.Printf("Telegram message (not sent): %s", text)
		return err
	}

	return nil
}

// SendReport sends the formatted end-of-run report.
func (t *Telegram) SendReport(r *models.Report) error {
	return t.SendMessage(FormatReport(r))
}

func (t *Telegram) SendNoCitiesMessage() error {
	return t.SendMessage("📨 <b>No cities to scrape</b>\nNo cities require scraping at this time.")
}

func (t *Telegram) SendErrorReport(runErr error) error {
	return t.SendMessage(fmt.Sprintf("❌ <b>SCRAPING FAILED</b>\n\nError: %v", runErr))
}

// FormatReport renders the run statistics as the HTML report message.
func FormatReport(r *models.Report) string {
	var b strings.Builder
	b.WriteString("🏆 <b>SCRAPING COMPLETED</b>\n")
	b.WriteString("─────────────────────\n")
	fmt.Fprintf(&b, "✅ Successful cities: %d/%d\n", r.CitiesSuccess, r.TotalCities)
	fmt.Fprintf(&b, "❌ Errors: %d cities\n", r.CitiesErrors)
	fmt.Fprintf(&b, "⚠️ Warnings: %d cities (0 listings)\n", r.CitiesWarnings)
	fmt.Fprintf(&b, "⏱️ Duration: %s\n", r.DurationString())
	fmt.Fprintf(&b, "📊 New listings: %d\n", r.NewListings)
	fmt.Fprintf(&b, "🔄 Duplicates avoided: %d\n", r.Duplicates)
	fmt.Fprintf(&b, "🗓️ Finished: %s", r.FinishedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
