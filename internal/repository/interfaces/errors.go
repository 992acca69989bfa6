package interfaces

import "errors"

var (
	// ErrOrderCodeTaken 订单编号唯一索引冲突，调用方应重新生成编号
	ErrOrderCodeTaken = errors.New("order code already exists")
	// ErrSeatTaken 该车次座位已被未取消的订单占用
	ErrSeatTaken = errors.New("seat already booked")
)
