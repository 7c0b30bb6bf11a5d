// Package alerts implements the notifier capability spec.md §6 describes:
// console, file (append, one JSON line per alert), and webhook (single JSON
// POST per alert). Each implementation fails independently; a MultiNotifier
// fans one alert out to all of them without letting one failure block the
// rest.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"clmmctl/internal/types"
)

// Notifier is the capability every channel implements: notify(alert) with a
// name for diagnostics, mirroring the teacher's narrow-collaborator style.
type Notifier interface {
	Notify(alert types.Alert) error
	Name() string
}

// ConsoleNotifier prints alerts to stdout.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Name() string { return "console" }

func (ConsoleNotifier) Notify(alert types.Alert) error {
	fmt.Printf("[%s] %s %s: %s\n", alert.Timestamp.Format("15:04:05"), alert.Level, alert.Type, alert.Message)
	return nil
}

// FileNotifier appends one JSON-encoded alert per line to path.
type FileNotifier struct {
	Path string
}

func NewFileNotifier(path string) *FileNotifier {
	return &FileNotifier{Path: path}
}

func (f *FileNotifier) Name() string { return "file" }

func (f *FileNotifier) Notify(alert types.Alert) error {
	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	line, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	_, err = file.Write(append(line, '\n'))
	return err
}

// WebhookNotifier POSTs a single JSON payload per alert to URL.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: http.DefaultClient}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(alert types.Alert) error {
	payload, err := json.Marshal(struct {
		Text  string      `json:"text"`
		Alert types.Alert `json:"alert"`
	}{Text: fmt.Sprintf("%s %s: %s", alert.Level, alert.Type, alert.Message), Alert: alert})
	if err != nil {
		return err
	}

	resp, err := w.Client.Post(w.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MultiNotifier fans an alert out to every registered channel; one
// notifier's failure is logged and does not prevent the others from firing
// (spec.md §6).
type MultiNotifier struct {
	notifiers []Notifier
	logger    *log.Logger
}

func NewMultiNotifier(logger *log.Logger, notifiers ...Notifier) *MultiNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &MultiNotifier{notifiers: notifiers, logger: logger}
}

func (m *MultiNotifier) NotifyAll(alert types.Alert) {
	for _, n := range m.notifiers {
		if err := n.Notify(alert); err != nil {
			m.logger.Printf("notifier %s failed for alert %s: %v", n.Name(), alert.ID, err)
		}
	}
}
