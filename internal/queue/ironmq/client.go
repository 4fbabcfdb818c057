// Package ironmq — очередь событий поверх HTTP API IronMQ v3:
// reserve с удалением или без, delete по reservation_id, release, post.
package ironmq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// MaxReserve — больше сообщений за один reserve API не отдаёт.
const MaxReserve = 100

// errNotFound — очередь ещё не создана (ни одного post).
var errNotFound = errors.New("ironmq: not found")

// Config — доступ к проекту IronMQ.
type Config struct {
	Host      string // https://mq-aws-eu-west-1-1.iron.io
	ProjectID string
	Token     string
	RetryMax  int
	Timeout   time.Duration
}

// Client — тонкий клиент API с ретраями на 5xx и сетевых ошибках.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	token   string
}

// NewClient — конструктор.
func NewClient(cfg Config, log ports.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	if cfg.Timeout > 0 {
		hc.HTTPClient.Timeout = cfg.Timeout
	}
	hc.Logger = leveledLogger{log: log}

	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.Host, "/") + "/3/projects/" + url.PathEscape(cfg.ProjectID),
		token:   cfg.Token,
	}
}

type messageJSON struct {
	ID            string `json:"id,omitempty"`
	Body          string `json:"body,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
}

type reserveRequest struct {
	N      int  `json:"n"`
	Delete bool `json:"delete"`
}

type messagesJSON struct {
	Messages []messageJSON `json:"messages"`
}

type deleteRequest struct {
	IDs []messageJSON `json:"ids"`
}

func (c *Client) queueURL(queue string, parts ...string) string {
	u := c.baseURL + "/queues/" + url.PathEscape(queue)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// Reserve — до n сообщений из очереди.
func (c *Client) Reserve(ctx context.Context, queue string, n int, del bool) ([]messageJSON, error) {
	var out messagesJSON
	err := c.do(ctx, http.MethodPost, c.queueURL(queue, "reservations"), reserveRequest{N: n, Delete: del}, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Delete — удалить зарезервированные сообщения.
func (c *Client) Delete(ctx context.Context, queue string, ids []messageJSON) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodDelete, c.queueURL(queue, "messages"), deleteRequest{IDs: ids}, nil)
}

// Release — вернуть сообщение в очередь до истечения резервации.
func (c *Client) Release(ctx context.Context, queue string, m messageJSON) error {
	body := messageJSON{ReservationID: m.ReservationID}
	return c.do(ctx, http.MethodPost, c.queueURL(queue, "messages", m.ID, "release"), body, nil)
}

// Post — положить сообщения в очередь (очередь создаётся при первом post).
func (c *Client) Post(ctx context.Context, queue string, bodies ...string) error {
	req := messagesJSON{Messages: make([]messageJSON, 0, len(bodies))}
	for _, b := range bodies {
		req.Messages = append(req.Messages, messageJSON{Body: b})
	}
	return c.do(ctx, http.MethodPost, c.queueURL(queue, "messages"), req, nil)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ironmq: encode request: %w", err)
	}
	req, err := retryablehttp.NewRequest(method, u, raw)
	if err != nil {
		return fmt.Errorf("ironmq: build request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ironmq %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errNotFound
	}
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ironmq %s %s: status %d: %s", method, u, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ironmq: decode response: %w", err)
	}
	return nil
}

// leveledLogger — логи ретраев retryablehttp в общий логгер.
type leveledLogger struct {
	log ports.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) {
	l.log.Errorf(context.Background(), "ironmq http: %s %v", msg, kv)
}
func (l leveledLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warnf(context.Background(), "ironmq http: %s %v", msg, kv)
}
func (l leveledLogger) Info(string, ...interface{})  {}
func (l leveledLogger) Debug(string, ...interface{}) {}
