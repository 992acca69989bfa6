package service

import (
	"context"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"
)

type StatsService struct {
	orderRepo   interfaces.OrderRepository
	paymentRepo interfaces.PaymentRepository
}

func NewStatsService(orderRepo interfaces.OrderRepository, paymentRepo interfaces.PaymentRepository) *StatsService {
	return &StatsService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
	}
}

func (s *StatsService) GetSystemStats(ctx context.Context) (*model.SystemStats, error) {
	byStatus, err := s.orderRepo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to count orders", err)
	}

	stats := &model.SystemStats{OrdersByStatus: byStatus}
	for _, n := range byStatus {
		stats.TotalOrders += n
	}
	stats.PendingOrders = byStatus[model.OrderPending]

	stats.PaidAmount, err = s.paymentRepo.SumPaidAmount(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to sum payments", err)
	}

	stats.OpenRefunds, err = s.paymentRepo.CountRefundRequests(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to count refund requests", err)
	}
	return stats, nil
}
