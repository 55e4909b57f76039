package services

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// DocumentRegistry keeps uploaded document text behind opaque handles so one
// caller's upload is never served to another caller's chat.
type DocumentRegistry struct {
	mu      sync.Mutex
	entries map[string]documentEntry
	ttl     time.Duration
	now     func() time.Time
}

type documentEntry struct {
	text      string
	expiresAt time.Time
}

// NewDocumentRegistry creates a registry whose entries live for ttl
func NewDocumentRegistry(ttl time.Duration) *DocumentRegistry {
	return &DocumentRegistry{
		entries: make(map[string]documentEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores text and returns its handle
func (r *DocumentRegistry) Put(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictLocked()
	id := uuid.NewString()
	r.entries[id] = documentEntry{text: text, expiresAt: r.now().Add(r.ttl)}
	return id
}

// Get returns the text behind a handle
func (r *DocumentRegistry) Get(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return "", false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.entries, id)
		return "", false
	}
	return entry.text, true
}

// Len returns the number of live documents
func (r *DocumentRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	return len(r.entries)
}

func (r *DocumentRegistry) evictLocked() {
	now := r.now()
	for id, entry := range r.entries {
		if now.After(entry.expiresAt) {
			delete(r.entries, id)
		}
	}
}

// ExtractText converts an uploaded PDF or plain-text file into text. Any
// other extension is a validation error.
func ExtractText(filename string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		return extractPDFText(data)
	case ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		return strings.ToValidUTF8(string(data), ""), nil
	default:
		return "", invalid("Unsupported file type (only PDF or TXT)")
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read PDF page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return strings.TrimSpace(text.String()), nil
}
