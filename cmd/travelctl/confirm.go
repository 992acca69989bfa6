package main

import (
	"context"
	"fmt"
	"time"

	"travel-booking-backend/config"
	"travel-booking-backend/internal/repository/mysql"
	"travel-booking-backend/internal/service"

	"github.com/spf13/cobra"
)

var (
	confirmOrderCode string
	confirmTxID      string
	confirmMethod    string
)

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Manually reconcile a payment against an order code",
		Long: `Marks a pending order as paid when an automatic confirmation was missed.

Examples:
  travelctl confirm --order-code ORD-AB12CD34 --tx FT24001
  travelctl confirm --order-code ordab12cd34 --method cash`,
		RunE: runConfirm,
	}

	cmd.Flags().StringVar(&confirmOrderCode, "order-code", "", "order code, with or without separators")
	cmd.Flags().StringVar(&confirmTxID, "tx", "", "external transaction reference (generated when empty)")
	cmd.Flags().StringVar(&confirmMethod, "method", "", "payment method, defaults to the order's method")
	_ = cmd.MarkFlagRequired("order-code")
	return cmd
}

func runConfirm(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewPaymentService(mysql.NewOrderRepository(db), service.PaymentOptions{
		CodePrefix: cfg.OrderCodePrefix,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	result, err := svc.ConfirmByCode(ctx, confirmOrderCode, confirmMethod, confirmTxID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Applied {
		fmt.Fprintf(out, "order %s (#%d) confirmed\n", result.OrderCode, result.OrderID)
	} else {
		fmt.Fprintf(out, "order %s (#%d) was already %s, nothing changed\n", result.OrderCode, result.OrderID, result.Status)
	}
	return nil
}
