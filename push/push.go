package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	NotificationTypeLateCheckin = "late_checkin"
	NotificationTypeAbsence     = "absence"
)

var httpClient = http.Client{Timeout: 10 * time.Second}

type Notification struct {
	Type       string            `json:"type"`
	UserTokens []string          `json:"user_tokens" binding:"required"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data"`
}

// Send posts the notification to server + "/send"
func (notification *Notification) Send(server string) error {
	buf := bytes.Buffer{}
	if err := json.NewEncoder(&buf).Encode(*notification); err != nil {
		return err
	}
	resp, err := httpClient.Post(server+"/send", "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		buf.Reset()
		_, _ = io.Copy(&buf, io.LimitReader(resp.Body, 1024))
		zap.S().Debugf("Push server response: %s", buf.String())
		return fmt.Errorf("push server status: %d", resp.StatusCode)
	}
	return nil
}
