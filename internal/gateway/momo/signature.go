package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign 对规范化字符串做 HMAC-SHA256，返回小写十六进制
func Sign(secretKey, data string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 常量时间比较签名
func Verify(secretKey, data, signature string) bool {
	expected, err := hex.DecodeString(Sign(secretKey, data))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// createCanonical 发起支付的签名原文，字段按字母序排列
func createCanonical(accessKey string, r *createRequest) string {
	return "accessKey=" + accessKey +
		"&amount=" + strconv.FormatInt(r.Amount, 10) +
		"&extraData=" + r.ExtraData +
		"&ipnUrl=" + r.IpnURL +
		"&orderId=" + r.OrderID +
		"&orderInfo=" + r.OrderInfo +
		"&partnerCode=" + r.PartnerCode +
		"&redirectUrl=" + r.RedirectURL +
		"&requestId=" + r.RequestID +
		"&requestType=" + r.RequestType
}

// callbackCanonical IPN 回调的签名原文
func callbackCanonical(accessKey string, cb *Callback) string {
	return "accessKey=" + accessKey +
		"&amount=" + strconv.FormatInt(cb.Amount, 10) +
		"&extraData=" + cb.ExtraData +
		"&message=" + cb.Message +
		"&orderId=" + cb.OrderID +
		"&orderInfo=" + cb.OrderInfo +
		"&orderType=" + cb.OrderType +
		"&partnerCode=" + cb.PartnerCode +
		"&payType=" + cb.PayType +
		"&requestId=" + cb.RequestID +
		"&responseTime=" + strconv.FormatInt(cb.ResponseTime, 10) +
		"&resultCode=" + strconv.Itoa(cb.ResultCode) +
		"&transId=" + strconv.FormatInt(cb.TransID, 10)
}
