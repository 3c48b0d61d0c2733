package notify

import (
	"context"

	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// LogMailer пишет письма в лог. Реальная доставка почты подключается снаружи.
type LogMailer struct {
	From string
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{From: from}
}

func (m *LogMailer) SendMail(_ context.Context, to, subject, body string) error {
	logger.WithComponent("mailer").WithFields(logrus.Fields{
		"from":    m.From,
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}
