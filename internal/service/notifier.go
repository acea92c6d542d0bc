package service

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"driverops/internal/model"
	"driverops/internal/notify"
)

// Notifier receives fire-and-forget engine events
type Notifier interface {
	Dispatch(ctx context.Context, e notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(context.Context, notify.Event) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// formatMoney renders v with thousands separators and two decimals
func formatMoney(v float64) string {
	return humanize.FormatFloat("#,###.##", round2(v))
}

func overdueBody(m model.Maintenance) string {
	switch {
	case m.NextKm != nil:
		return fmt.Sprintf("%s was due at %s km", m.Name, humanize.Comma(int64(math.Round(*m.NextKm))))
	case m.NextDate != nil:
		return fmt.Sprintf("%s was due on %s", m.Name, m.NextDate.Format(model.DateLayout))
	default:
		return m.Name
	}
}
