package notify

import (
	"context"
	"fmt"

	"github.com/soumik404/basecast/internal/domain"
)

// NotifyEvent formats a settlement event into a human-readable alert and
// forwards it through the event filter. The event's type doubles as the
// filter key, so operators can subscribe to e.g. only "resolved" and
// "pool_stranded".
func (n *Notifier) NotifyEvent(ctx context.Context, ev domain.SettlementEvent) error {
	title, message := formatEvent(ev)
	return n.Notify(ctx, ev.Type, title, message)
}

func formatEvent(ev domain.SettlementEvent) (title, message string) {
	switch ev.Type {
	case domain.EventPredictionCreated:
		title = fmt.Sprintf("Prediction #%d created", ev.PredictionID)
		message = fmt.Sprintf("creator %s", ev.Address)
	case domain.EventBetConfirmed:
		title = fmt.Sprintf("Bet confirmed on #%d", ev.PredictionID)
		message = fmt.Sprintf("%s staked %.4f on %s", ev.Address, ev.Amount, ev.Choice)
	case domain.EventResultProposed:
		title = fmt.Sprintf("Result proposed for #%d", ev.PredictionID)
		message = fmt.Sprintf("%s proposed %s", ev.Address, ev.Choice)
	case domain.EventResultRejected:
		title = fmt.Sprintf("Proposal rejected for #%d", ev.PredictionID)
		message = fmt.Sprintf("rejected by %s, prediction back to active", ev.Address)
	case domain.EventResolved:
		title = fmt.Sprintf("Prediction #%d resolved", ev.PredictionID)
		message = fmt.Sprintf("final result %s", ev.Choice)
	case domain.EventRewardClaimed:
		title = fmt.Sprintf("Reward claimed on #%d", ev.PredictionID)
		message = fmt.Sprintf("%s claimed %.4f", ev.Address, ev.Amount)
	case domain.EventPoolStranded:
		title = fmt.Sprintf("Pool stranded on #%d", ev.PredictionID)
		message = fmt.Sprintf("%.4f locked with no winning bets", ev.Amount)
	case domain.EventReconciled:
		title = fmt.Sprintf("Prediction #%d reconciled", ev.PredictionID)
		message = "projection overwritten from chain state"
	default:
		title = fmt.Sprintf("Settlement event on #%d", ev.PredictionID)
		message = ev.Type
	}
	if ev.TxHash != "" {
		message += fmt.Sprintf(" (tx %s)", ev.TxHash)
	}
	return title, message
}
