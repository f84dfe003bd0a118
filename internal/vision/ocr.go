package vision

import (
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

const plateCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TesseractRecognizer is the OCR collaborator. One Tesseract client is
// shared by the one-shot and live paths; the client is not reentrant, so
// calls serialize on a mutex.
type TesseractRecognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractRecognizer configures a Tesseract client for single-line
// plate text restricted to letters and digits.
func NewTesseractRecognizer(language string) (*TesseractRecognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(plateCharset); err != nil {
		client.Close()
		return nil, fmt.Errorf("set character whitelist: %w", err)
	}
	return &TesseractRecognizer{client: client}, nil
}

// Recognize extracts text from a PNG-encoded plate crop.
func (r *TesseractRecognizer) Recognize(png []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set OCR image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract client.
func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
