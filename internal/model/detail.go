package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DateLayout 预订日期统一使用 yyyy-mm-dd
const DateLayout = "2006-01-02"

// Detail 订单明细，四种变体之一。isDetail 未导出，保证只有本包能新增变体。
type Detail interface {
	ItemType() ItemType
	UnitPriceSnapshot() decimal.Decimal
	SetUnitPrice(price decimal.Decimal)
	isDetail()
}

// TourDetail 旅游团明细
type TourDetail struct {
	Quantity    int             `json:"quantity" binding:"min=0"`
	BookingDate string          `json:"booking_date" binding:"required,iso_date"`
	GuestInfo   string          `json:"guest_info" binding:"max=2000"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// AccommodationDetail 住宿明细，Nights 为下单时计算的晚数快照
type AccommodationDetail struct {
	RoomID    *int            `json:"room_id,omitempty"`
	StartDate string          `json:"start_date" binding:"required,iso_date"`
	EndDate   string          `json:"end_date" binding:"required,iso_date"`
	Quantity  int             `json:"quantity" binding:"min=0"`
	Nights    int             `json:"nights"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// VehicleDetail 车辆座位明细
type VehicleDetail struct {
	SeatPosition string          `json:"seat_position" binding:"max=32"`
	SeatCount    int             `json:"seat_count" binding:"min=0"`
	Quantity     int             `json:"quantity" binding:"min=0"`
	Origin       string          `json:"origin" binding:"required,max=255"`
	Destination  string          `json:"destination" binding:"required,max=255"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// TicketDetail 门票明细
type TicketDetail struct {
	Quantity  int             `json:"quantity" binding:"min=0"`
	VisitDate string          `json:"visit_date" binding:"required,iso_date"`
	GuestInfo string          `json:"guest_info" binding:"max=2000"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (*TourDetail) ItemType() ItemType          { return ItemTour }
func (*AccommodationDetail) ItemType() ItemType { return ItemAccommodation }
func (*VehicleDetail) ItemType() ItemType       { return ItemVehicle }
func (*TicketDetail) ItemType() ItemType        { return ItemTicket }

func (d *TourDetail) UnitPriceSnapshot() decimal.Decimal          { return d.UnitPrice }
func (d *AccommodationDetail) UnitPriceSnapshot() decimal.Decimal { return d.UnitPrice }
func (d *VehicleDetail) UnitPriceSnapshot() decimal.Decimal       { return d.UnitPrice }
func (d *TicketDetail) UnitPriceSnapshot() decimal.Decimal        { return d.UnitPrice }

func (d *TourDetail) SetUnitPrice(p decimal.Decimal)          { d.UnitPrice = p }
func (d *AccommodationDetail) SetUnitPrice(p decimal.Decimal) { d.UnitPrice = p }
func (d *VehicleDetail) SetUnitPrice(p decimal.Decimal)       { d.UnitPrice = p }
func (d *TicketDetail) SetUnitPrice(p decimal.Decimal)        { d.UnitPrice = p }

func (*TourDetail) isDetail()          {}
func (*AccommodationDetail) isDetail() {}
func (*VehicleDetail) isDetail()       {}
func (*TicketDetail) isDetail()        {}

// NewDetail 返回指定类型的空明细
func NewDetail(t ItemType) (Detail, error) {
	switch t {
	case ItemTour:
		return &TourDetail{}, nil
	case ItemAccommodation:
		return &AccommodationDetail{}, nil
	case ItemVehicle:
		return &VehicleDetail{}, nil
	case ItemTicket:
		return &TicketDetail{}, nil
	}
	return nil, fmt.Errorf("unknown item type %q", t)
}

// ParseDetail 按 item_type 解析请求中的 details 对象。
// 客户端传入的 unit_price 会被忽略，价格快照只来自商品目录。
func ParseDetail(t ItemType, raw json.RawMessage) (Detail, error) {
	d, err := NewDetail(t)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, d); err != nil {
			return nil, fmt.Errorf("invalid %s details: %w", t, err)
		}
	}
	d.SetUnitPrice(decimal.Zero)
	return d, nil
}
