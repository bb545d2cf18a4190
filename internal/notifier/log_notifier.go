package notifier

import (
	"context"
	"wqd/internal/providers"
)

type LogNotifier struct {
	logger providers.Logger
}

func NewLogNotifier(logger providers.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Warnf(providers.TypeApp, "ALERT source=%s violations=%v reading=%s: %s",
		alert.SourceID, alert.Verdict.Violations, alert.Reading.ID, alert.Message)
	return nil
}
