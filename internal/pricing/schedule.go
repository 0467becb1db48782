package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleCloseRoll registers feed.RollClose on a standard five-field cron
// expression. The returned scheduler is not started.
func ScheduleCloseRoll(expr string, feed Feed, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := feed.RollClose(ctx)
		if err != nil {
			slog.Error("close roll failed", "err", err)
			return
		}
		slog.Info("close roll complete", "quotes", n)
	})
	if err != nil {
		return nil, fmt.Errorf("pricing: close roll schedule %q: %w", expr, err)
	}
	return c, nil
}
