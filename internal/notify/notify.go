package notify

import (
	"bytes"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Severity ranks a notification.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Notifier delivers out-of-band alerts (safety violations, transport
// errors). Implementations must not block the strategy thread for long.
type Notifier interface {
	Notify(severity Severity, title, message string)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(severity Severity, title, message string) {
	switch severity {
	case SeverityCritical:
		logs.Errorf("[%s] %s: %s", severity, title, message)
	case SeverityWarn:
		logs.Warnf("[%s] %s: %s", severity, title, message)
	default:
		logs.Infof("[%s] %s: %s", severity, title, message)
	}
}

// WebhookNotifier posts notifications as JSON to a webhook URL and logs
// them as well so an unreachable sink never swallows an alert.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook sink.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookPayload struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	TimeMs   int64  `json:"time_ms"`
}

func (n *WebhookNotifier) Notify(severity Severity, title, message string) {
	LogNotifier{}.Notify(severity, title, message)

	payload, err := sonic.ConfigFastest.Marshal(webhookPayload{
		Severity: severity.String(),
		Title:    title,
		Message:  message,
		TimeMs:   time.Now().UnixMilli(),
	})
	if err != nil {
		logs.Errorf("encode notification, err: %+v", err)
		return
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		logs.Errorf("post notification, err: %+v", errors.Wrap(err, "webhook"))
		return
	}
	resp.Body.Close()
}
