package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/pool/bytebuff"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// Snapshot 网关返回的快照及其 ETag
type Snapshot struct {
	Sheet sheet.Sheet
	ETag  string
}

// SendResult PATCH 结果
type SendResult struct {
	Revision  int64 `json:"revision"`
	Duplicate bool  `json:"duplicate"`
}

// Gateway 持久化网关
type Gateway interface {
	// Fetch 拉取快照，etag 非空且服务端未变化时返回 ErrNotModified
	Fetch(ctx context.Context, sheetID, etag string) (Snapshot, error)
	// Send 提交一个动作
	Send(ctx context.Context, sheetID string, a sheet.Action) (SendResult, error)
}

// StatusError 网关返回的非 2xx 响应
type StatusError struct {
	Status  int
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway status %d", e.Status)
	}
	return fmt.Sprintf("gateway status %d (code=%d): %s", e.Status, e.Code, e.Message)
}

// Is 404 视为 ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client HTTP 网关客户端
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建网关客户端，hc 为空时使用默认 http.Client
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidConfig, "base url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

// Create 创建空表，返回 id
func (c *Client) Create(ctx context.Context, name string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"name": name}
	if err := c.call(ctx, http.MethodPost, "/sheets", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.Wrap(ErrBadResponse, "create: empty id")
	}
	return out.ID, nil
}

// Fetch GET /sheets/{id}
func (c *Client) Fetch(ctx context.Context, sheetID, etag string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheetURL(sheetID), nil)
	if err != nil {
		return Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetch sheet")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return Snapshot{}, ErrNotModified
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "read snapshot")
	}
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, statusError(resp.StatusCode, data)
	}

	s, err := sheet.DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Sheet: s, ETag: resp.Header.Get("ETag")}, nil
}

// Send PATCH /sheets/{id}，sendToServer 强制为 false
func (c *Client) Send(ctx context.Context, sheetID string, a sheet.Action) (SendResult, error) {
	a.SendToServer = false

	var out SendResult
	if err := c.call(ctx, http.MethodPatch, "/sheets/"+url.PathEscape(sheetID), a, &out); err != nil {
		return SendResult{}, err
	}
	return out, nil
}

func (c *Client) sheetURL(sheetID string) string {
	return c.baseURL + "/sheets/" + url.PathEscape(sheetID)
}

// call 发送 JSON 请求并解析 web.Response 信封中的 data
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	buf := bytebuff.GetBody()
	defer bytebuff.PutBody(buf)

	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.B))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Mark(errors.Wrap(err, "decode response"), ErrBadResponse)
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Mark(errors.Wrap(err, "decode response data"), ErrBadResponse)
	}
	return nil
}

func statusError(status int, body []byte) error {
	se := &StatusError{Status: status}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		se.Code = env.Code
		se.Message = env.Message
	}
	return se
}
