// Package pricing computes order totals from a catalog unit price and the
// booking detail. All functions are pure; nothing here touches storage.
package pricing

import (
	"fmt"
	"time"

	"travel-booking-backend/internal/model"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Units 数量为 0 或缺省时按 1 计，不允许零元订单
func Units(n int) int64 {
	if n < 1 {
		return 1
	}
	return int64(n)
}

// Nights 入住晚数，不足一天向上取整；退房不晚于入住时按 1 晚计
func Nights(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 1
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ParseDate 解析 yyyy-mm-dd
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Compute 按明细类型计算订单总价。住宿明细的 Nights 快照会被回写。
func Compute(unitPrice decimal.Decimal, d model.Detail) (decimal.Decimal, error) {
	switch v := d.(type) {
	case *model.TourDetail:
		return unitPrice.Mul(decimal.NewFromInt(Units(v.Quantity))), nil
	case *model.AccommodationDetail:
		start, err := ParseDate(v.StartDate)
		if err != nil {
			return decimal.Zero, err
		}
		end, err := ParseDate(v.EndDate)
		if err != nil {
			return decimal.Zero, err
		}
		v.Nights = Nights(start, end)
		return unitPrice.
			Mul(decimal.NewFromInt(Units(v.Quantity))).
			Mul(decimal.NewFromInt(int64(v.Nights))), nil
	case *model.VehicleDetail:
		seats := v.SeatCount
		if seats < 1 {
			seats = v.Quantity
		}
		return unitPrice.Mul(decimal.NewFromInt(Units(seats))), nil
	case *model.TicketDetail:
		return unitPrice.Mul(decimal.NewFromInt(Units(v.Quantity))), nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing booking details")
	default:
		return decimal.Zero, fmt.Errorf("unsupported booking detail %T", d)
	}
}
