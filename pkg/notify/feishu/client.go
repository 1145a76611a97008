package feishu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/config"
)

// Client 飞书自定义机器人客户端
type Client struct {
	config *Config
	client *http.Client
	now    func() time.Time
}

// NewClient 创建飞书客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: newCfg,
		client: &http.Client{Timeout: newCfg.Timeout},
		now:    time.Now,
	}, nil
}

// Send 发送消息
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"msg_type": msg.Type(),
		"content":  msg.Content(),
	}
	if c.config.Secret != "" {
		timestamp := c.now().Unix()
		payload["timestamp"] = fmt.Sprintf("%d", timestamp)
		payload["sign"] = c.genSign(timestamp)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "post webhook"), ErrRequestFailed)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrRequestFailed, "status %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return errors.Mark(errors.Wrap(err, "decode response"), ErrResponseInvalid)
	}
	if result.Code != 0 {
		return errors.Wrapf(ErrAPIError, "%s (code=%d)", result.Msg, result.Code)
	}
	return nil
}

// genSign timestamp + "\n" + secret 作为 HmacSHA256 的 key，对空串签名
func (c *Client) genSign(timestamp int64) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, c.config.Secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	h.Write([]byte{})
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
