package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunLedgerPruner calls tokens.Prune every interval until ctx is done.
func RunLedgerPruner(ctx context.Context, tokens *TokenService, interval time.Duration, log logrus.FieldLogger) {
	if interval <= 0 {
		return
	}
	log = log.WithField("component", "ledger-pruner")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := tokens.Prune(pctx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("prune failed")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Info("pruned expired ledger entries")
			}
		}
	}
}
