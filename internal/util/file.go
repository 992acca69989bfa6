package util

import (
	"fmt"
	"strings"
	"time"
)

// EvidenceKey 生成支付凭证归档路径
// 格式: evidence/<source>/<yyyy-mm-dd>/<order_code>-<unix_nano>.json
func EvidenceKey(source, orderCode string, at time.Time) string {
	if orderCode == "" {
		orderCode = "unmatched"
	}
	orderCode = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(orderCode)
	return fmt.Sprintf("evidence/%s/%s/%s-%d.json",
		source, at.UTC().Format("2006-01-02"), orderCode, at.UnixNano())
}
