package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Interface for a type that can surface enforcement outcomes to server
// operators.
type Notifier interface {
	SendActionResult(ctx context.Context, rec AuditRecord) error
}

type SlackNotifier struct {
	SlackWebhookURL string
}

var _ Notifier = (*SlackNotifier)(nil)

func (n *SlackNotifier) SendActionResult(ctx context.Context, rec AuditRecord) error {
	var msg string
	if rec.Applied {
		msg = "⚠️ Automod Enforcement ⚠️\n"
	} else {
		msg = "🚨 Automod Enforcement FAILED 🚨\n"
	}
	msg += fmt.Sprintf("`%s` on user `%s` in guild `%s`\n", rec.Action.Kind, rec.Action.UserID, rec.Action.GuildID)
	msg += fmt.Sprintf("Reason: %s (score %.1f)\n", rec.Action.Reason, rec.Action.Score)
	if !rec.Applied {
		msg += fmt.Sprintf("Error after %d attempts: %s\n", rec.Attempts, rec.Error)
	}
	return n.sendSlackMsg(ctx, msg)
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack
// workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
