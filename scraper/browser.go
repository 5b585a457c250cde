package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

// BrowserClient drives a real browser against the public search pages and
// reads results from the embedded __NEXT_DATA__ payload. Slower than the
// API client, used when the API path is blocked by bot protection.
type BrowserClient struct {
	cfg     *config.SourceConfig
	pw      *playwright.Playwright
	browser playwright.BrowserContext
	page    playwright.Page
}

func NewBrowserClient(cfg *config.SourceConfig) *BrowserClient {
	return &BrowserClient{cfg: cfg}
}

func (c *BrowserClient) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	if err := c.ensureBrowser(); err != nil {
		return nil, err
	}

	searchURL := BuildSearchURL(c.cfg.BaseURL, req)
	log.Printf("Browser: loading %s", searchURL)

	if _, err := c.page.Goto(searchURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("goto: %w", err)
	}

	content, err := c.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}

	return parseSearchHTML(content)
}

func (c *BrowserClient) ensureBrowser() error {
	if c.page != nil {
		return nil
	}

	var err error
	c.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	c.browser, err = c.pw.Chromium.LaunchPersistentContext("browser_data", playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	c.page, err = c.browser.NewPage()
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}

	return nil
}

func (c *BrowserClient) Close() {
	if c.browser != nil {
		c.browser.Close()
		c.browser = nil
		c.page = nil
	}
	if c.pw != nil {
		c.pw.Stop()
		c.pw = nil
	}
}

// parseSearchHTML extracts the search payload from the __NEXT_DATA__
// script block of a rendered search page.
func parseSearchHTML(html string) (*SearchPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	raw := doc.Find("script#__NEXT_DATA__").Text()
	if raw == "" {
		return nil, fmt.Errorf("no __NEXT_DATA__ payload in page")
	}

	var payload nextData
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode __NEXT_DATA__: %w", err)
	}

	data := payload.Props.PageProps.SearchData
	return &SearchPage{
		Ads:      data.Ads,
		MaxPages: data.MaxPages,
	}, nil
}

type nextData struct {
	Props struct {
		PageProps struct {
			SearchData struct {
				Ads      []models.RawAd `json:"ads"`
				MaxPages int            `json:"max_pages"`
			} `json:"searchData"`
		} `json:"pageProps"`
	} `json:"props"`
}
