package email

import (
	"context"
	"fmt"
	"strings"

	"staffledger/internal/domain/ledger"
)

// Notifier mails the employee a confirmation of every advance and payment
// recorded against them.
type Notifier struct {
	Mailer Mailer
	From   string
}

func NewNotifier(mailer Mailer, from string) *Notifier {
	return &Notifier{Mailer: mailer, From: from}
}

func (n *Notifier) Notify(ctx context.Context, notice ledger.Notice) error {
	if n == nil || n.Mailer == nil || strings.TrimSpace(notice.EmployeeEmail) == "" {
		return nil
	}
	subject, body := renderNotice(notice)
	return n.Mailer.Send(ctx, Message{
		From:    n.From,
		To:      notice.EmployeeEmail,
		Subject: subject,
		Body:    body,
	})
}

func renderNotice(notice ledger.Notice) (string, string) {
	date := notice.At.Format("02 Jan 2006")
	switch notice.Kind {
	case ledger.KindAdvance:
		return "Salary advance recorded",
			fmt.Sprintf("Hello %s,\n\nAn advance of %s was recorded on %s and will be deducted from your salary.\n", notice.EmployeeName, notice.Amount.StringFixed(2), date)
	default:
		return "Salary payment recorded",
			fmt.Sprintf("Hello %s,\n\nA salary payment of %s was recorded on %s.\n", notice.EmployeeName, notice.Amount.StringFixed(2), date)
	}
}
