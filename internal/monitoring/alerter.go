package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/config"
	"github.com/sells-group/compliance-chaser/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertEscalationBacklog AlertType = "escalation_backlog"
	AlertDocumentFailures  AlertType = "document_failures"
	AlertRejectedTasks     AlertType = "rejected_tasks"
)

// Alert is a single webhook notification.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter checks snapshots against the configured thresholds and posts
// alerts to the webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.Policy
}

// NewAlerter creates an Alerter.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetries("monitoring", "webhook")
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  retry,
	}
}

// Evaluate returns the alerts snap triggers. A zero threshold disables
// its check.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.EscalationThreshold > 0 && snap.DueForEscalation >= a.cfg.EscalationThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertEscalationBacklog,
			Severity: "high",
			Message: fmt.Sprintf("%d task(s) are due for escalation (threshold %d, %d overdue in total)",
				snap.DueForEscalation, a.cfg.EscalationThreshold, snap.Overdue),
			Details: map[string]any{
				"due_for_escalation": snap.DueForEscalation,
				"due_for_reminder":   snap.DueForReminder,
				"overdue":            snap.Overdue,
				"threshold":          a.cfg.EscalationThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.FailureThreshold > 0 && snap.RecentFailures >= a.cfg.FailureThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDocumentFailures,
			Severity: "medium",
			Message: fmt.Sprintf("%d document(s) failed processing in last %dh",
				snap.RecentFailures, snap.LookbackHours),
			Details: map[string]any{
				"recent_failures": snap.RecentFailures,
				"threshold":       a.cfg.FailureThreshold,
			},
			Timestamp: now,
		})
	}

	if snap.Rejected > 0 {
		alerts = append(alerts, Alert{
			Type:      AlertRejectedTasks,
			Severity:  "low",
			Message:   fmt.Sprintf("%d stored task(s) could not be evaluated", snap.Rejected),
			Details:   map[string]any{"rejected": snap.Rejected},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts each alert to the webhook and returns how many were
// delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		err := resilience.Do(ctx, a.retry, func(ctx context.Context) error {
			return a.sendWebhook(ctx, alert)
		})
		if err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
