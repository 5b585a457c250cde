package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Rovis91/lbc/models"
	"github.com/Rovis91/lbc/storage"
)

const (
	maxImageBytes   = 50 * 1024 * 1024
	maxImageRetries = 3
)

// Uploader stores downloaded image bytes under a content-addressed key.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// NoOpUploader satisfies Uploader when no object storage is configured.
// Images pass through the queue and are marked failed after download so
// the queue drains instead of growing forever.
type NoOpUploader struct{}

func (NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	return fmt.Errorf("no uploader configured")
}

// ImageWorker drains the listing image queue in the background:
// download, hash, upload, record. It never touches listing rows.
type ImageWorker struct {
	store    *storage.PostgresStore
	uploader Uploader
	client   *http.Client
}

func NewImageWorker(store *storage.PostgresStore, uploader Uploader, client *http.Client) *ImageWorker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ImageWorker{store: store, uploader: uploader, client: client}
}

// Run processes pending images every interval until the context is
// cancelled. A failing batch is logged and retried on the next tick.
func (w *ImageWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessBatch(ctx, batchSize); err != nil {
			log.Printf("Warning: image batch failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch handles up to batchSize pending images. Per-image
// failures bump the attempt counter; the row is only marked failed once
// the retry budget is spent.
func (w *ImageWorker) ProcessBatch(ctx context.Context, batchSize int) error {
	images, err := w.store.GetPendingImages(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("get pending images: %w", err)
	}
	if len(images) == 0 {
		return nil
	}

	for i := range images {
		img := &images[i]
		key, err := w.processImage(ctx, img)
		if err != nil {
			status := models.ImageStatusPending
			if img.Attempts+1 >= maxImageRetries {
				status = models.ImageStatusFailed
			}
			log.Printf("Warning: image %d (%s): %v", img.ID, img.URL, err)
			if uerr := w.store.UpdateImageStatus(ctx, img.ID, status, nil, img.Attempts+1); uerr != nil {
				log.Printf("Warning: failed to record image status %d: %v", img.ID, uerr)
			}
			continue
		}
		if err := w.store.UpdateImageStatus(ctx, img.ID, models.ImageStatusUploaded, &key, img.Attempts+1); err != nil {
			log.Printf("Warning: failed to record image status %d: %v", img.ID, err)
		}
	}
	return nil
}

func (w *ImageWorker) processImage(ctx context.Context, img *models.ListingImage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("listings/%s/%s%s", hash[:2], hash, imageExt(img.URL, resp.Header.Get("Content-Type")))

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := w.uploader.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return key, nil
}

func imageExt(url, contentType string) string {
	if ext := path.Ext(url); ext != "" && len(ext) <= 5 && !strings.ContainsAny(ext, "?&") {
		return ext
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}
