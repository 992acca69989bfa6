package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// NotifierConfig SMTP 配置，Host 为空时不发送邮件
type NotifierConfig struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FrontendURL string
}

type EmailService struct {
	cfg      NotifierConfig
	userRepo interfaces.UserRepository
	send     func(to, subject, body string) error
}

func NewEmailService(cfg NotifierConfig, userRepo interfaces.UserRepository) *EmailService {
	s := &EmailService{
		cfg:      cfg,
		userRepo: userRepo,
	}
	s.send = s.sendEmail
	return s
}

func (s *EmailService) enabled() bool {
	return s.cfg.SMTPHost != "" && s.cfg.Username != ""
}

// SendOrderConfirmation 异步发送支付成功回执，失败只记录日志
func (s *EmailService) SendOrderConfirmation(order *model.Order) {
	if !s.enabled() {
		util.Logger.Debug("未配置 SMTP，跳过回执邮件", zap.Int("order_id", order.ID))
		return
	}
	snapshot := *order
	go func() {
		if err := s.sendOrderConfirmation(&snapshot); err != nil {
			util.Logger.Error("异步发送邮件失败", zap.Error(err), zap.Int("order_id", snapshot.ID))
		}
	}()
}

func (s *EmailService) sendOrderConfirmation(order *model.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	contact, err := s.userRepo.GetContact(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("查询用户邮箱失败: %w", err)
	}
	if contact == nil || contact.Email == "" {
		util.Logger.Warn("用户没有邮箱，跳过回执", zap.Int("user_id", order.UserID))
		return nil
	}

	subject, body := s.receipt(order, contact)
	return s.send(contact.Email, subject, body)
}

// receipt 生成回执邮件标题和正文
func (s *EmailService) receipt(order *model.Order, contact *model.UserContact) (string, string) {
	subject := fmt.Sprintf("Xác nhận thanh toán đơn hàng %s", order.OrderCode)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Xin chào %s,</p>", html.EscapeString(contact.Username))
	fmt.Fprintf(&b, "<p>Đơn hàng <strong>%s</strong> đã được xác nhận thanh toán.</p>", html.EscapeString(order.OrderCode))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Loại dịch vụ: %s</li>", order.OrderType)
	fmt.Fprintf(&b, "<li>Tổng tiền: %s %s</li>", order.TotalAmount.StringFixedBank(0), html.EscapeString(order.Currency))
	if order.PaymentTransactionID != nil {
		fmt.Fprintf(&b, "<li>Mã giao dịch: %s</li>", html.EscapeString(*order.PaymentTransactionID))
	}
	b.WriteString("</ul>")
	if s.cfg.FrontendURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s/orders/%d">Xem chi tiết đơn hàng</a></p>`, s.cfg.FrontendURL, order.ID)
	}
	return subject, b.String()
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	util.Logger.Info("开始发送邮件",
		zap.String("to", to),
		zap.String("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.Username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := mail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.Username, s.cfg.Password)
	d.Timeout = 20 * time.Second
	d.SSL = s.cfg.SMTPPort == 465

	if err := d.DialAndSend(m); err != nil {
		util.Logger.Error("发送邮件失败", zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	util.Logger.Info("邮件发送成功", zap.String("to", to))
	return nil
}
