package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldtrace/core/internal/models"
)

const (
	expoPushURL        = "https://exp.host/--/api/v2/push/send"
	defaultPushTimeout = 10 * time.Second
)

// Message is one notification to deliver.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers a message to a single device token. Delivery is
// best-effort: an error means this recipient failed, nothing more.
type Notifier interface {
	Send(ctx context.Context, token string, msg Message) error
}

// ExpoNotifier pushes through the Expo push API.
type ExpoNotifier struct {
	httpClient *http.Client
	url        string
}

func NewExpoNotifier() *ExpoNotifier {
	return &ExpoNotifier{
		httpClient: &http.Client{Timeout: defaultPushTimeout},
		url:        expoPushURL,
	}
}

type expoPushPayload struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

func (n *ExpoNotifier) Send(ctx context.Context, token string, msg Message) error {
	payload := expoPushPayload{
		To:    token,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
		Sound: "default",
	}
	return postJSON(ctx, n.httpClient, n.url, payload)
}

// NativeNotifier posts to a self-hosted push relay, one request per
// token, in the style of Bark-like servers.
type NativeNotifier struct {
	httpClient *http.Client
	serverURL  string
}

func NewNativeNotifier(serverURL string) *NativeNotifier {
	return &NativeNotifier{
		httpClient: &http.Client{Timeout: defaultPushTimeout},
		serverURL:  serverURL,
	}
}

type nativePushPayload struct {
	DeviceKey string            `json:"device_key"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (n *NativeNotifier) Send(ctx context.Context, token string, msg Message) error {
	if n.serverURL == "" {
		return fmt.Errorf("native push server not configured")
	}
	payload := nativePushPayload{
		DeviceKey: token,
		Title:     msg.Title,
		Body:      msg.Body,
		Extra:     msg.Data,
	}
	return postJSON(ctx, n.httpClient, n.serverURL+"/push", payload)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Providers maps each push provider tag to its notifier. The provider
// is a column on the token record, chosen at registration time.
func Providers(nativeServerURL string) map[models.PushProvider]Notifier {
	return map[models.PushProvider]Notifier{
		models.PushProviderExpo:   NewExpoNotifier(),
		models.PushProviderNative: NewNativeNotifier(nativeServerURL),
	}
}
