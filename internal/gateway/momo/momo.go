// Package momo 是 MoMo 钱包 v2 接口的客户端，只处理协议和签名，不做持久化。
package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"travel-booking-backend/internal/common"
	"travel-booking-backend/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResultSuccess 网关约定的成功结果码
const ResultSuccess = 0

const requestTypeCaptureWallet = "captureWallet"

type Config struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
	Timeout     time.Duration
	MaxRetries  int
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
}

// Callback 网关 IPN 回调内容，OrderID 即我们的 order_code
type Callback struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// Succeeded 网关是否报告支付成功
func (cb *Callback) Succeeded() bool {
	return cb.ResultCode == ResultSuccess
}

type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}
}

// CreatePayment 以 order_code 为 orderId 发起钱包支付，返回跳转地址。
// 金额按越南盾整数向上取整。
func (c *Client) CreatePayment(ctx context.Context, orderCode string, amount decimal.Decimal, description string) (string, error) {
	req := &createRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   orderCode + "-" + strconv.FormatInt(c.now().UnixMilli(), 10),
		Amount:      amount.Ceil().IntPart(),
		OrderID:     orderCode,
		OrderInfo:   description,
		RedirectURL: c.cfg.RedirectURL,
		IpnURL:      c.cfg.IPNURL,
		RequestType: requestTypeCaptureWallet,
		Lang:        "vi",
	}
	req.Signature = Sign(c.cfg.SecretKey, createCanonical(c.cfg.AccessKey, req))

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	util.Logger.Info("发起 MoMo 支付",
		zap.String("order_code", orderCode),
		zap.Int64("amount", req.Amount),
		zap.String("request_id", req.RequestID))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout*time.Duration(c.cfg.MaxRetries))
	defer cancel()

	var resp createResponse
	err = common.WithRetry(ctx, c.cfg.MaxRetries, 200*time.Millisecond, func(ctx context.Context) error {
		return c.post(ctx, body, &resp)
	})
	if err != nil {
		util.Logger.Error("MoMo 请求失败", zap.Error(err), zap.String("order_code", orderCode))
		return "", err
	}

	if resp.ResultCode != ResultSuccess || resp.PayURL == "" {
		util.Logger.Warn("MoMo 拒绝支付请求",
			zap.String("order_code", orderCode),
			zap.Int("result_code", resp.ResultCode),
			zap.String("message", resp.Message))
		return "", fmt.Errorf("momo create payment: resultCode=%d message=%s", resp.ResultCode, resp.Message)
	}
	return resp.PayURL, nil
}

func (c *Client) post(ctx context.Context, body []byte, out *createResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return common.Retryable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return common.Retryable(err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return common.Retryable(fmt.Errorf("momo returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode momo response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// SignCallback 计算回调签名，联调和测试时使用
func (c *Client) SignCallback(cb *Callback) string {
	return Sign(c.cfg.SecretKey, callbackCanonical(c.cfg.AccessKey, cb))
}

// VerifyCallback 校验回调签名。任何字段被改动都会导致校验失败。
func (c *Client) VerifyCallback(cb *Callback) bool {
	if cb == nil || cb.Signature == "" || c.cfg.SecretKey == "" {
		return false
	}
	return Verify(c.cfg.SecretKey, callbackCanonical(c.cfg.AccessKey, cb), cb.Signature)
}
