package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/store"
	"github.com/blackarb/arbengine/internal/types"
)

// runChainHealth is a low-priority worker that journals one gas sample and
// one RPC-pool health sample per chain every interval, the two durable
// series §2/§3 require but the scan/execution hot path never touches.
func runChainHealth(ctx context.Context, log *zap.Logger, rec *store.Recorder, pools map[types.ChainId]*chainpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sampleChainHealth(ctx, log, rec, pools)
		}
	}
}

func sampleChainHealth(ctx context.Context, log *zap.Logger, rec *store.Recorder, pools map[types.ChainId]*chainpool.Pool) {
	now := time.Now()
	for chain, pool := range pools {
		wei, err := pool.GasPrice(ctx)
		if err != nil {
			log.Warn("gas sample failed", zap.String("chain", chain.String()), zap.Error(err))
		} else {
			sample := store.GasSampleRecord{
				Chain:       int(chain),
				GasPrice:    wei.String(),
				SmoothedEMA: pool.SmoothedGasPrice().String(),
				SampledAt:   now,
			}
			if err := rec.RecordGasSample(sample); err != nil {
				log.Warn("failed to record gas sample", zap.Error(err))
			}
		}

		height, err := pool.BlockNumber(ctx)
		if err != nil {
			log.Warn("block number fetch failed", zap.String("chain", chain.String()), zap.Error(err))
		}
		healthy, degraded, down := pool.HealthSummary(now)
		metric := store.ChainMetricRecord{
			Chain:             int(chain),
			HealthyEndpoints:  healthy,
			DegradedEndpoints: degraded,
			DownEndpoints:     down,
			BlockHeight:       height,
			SampledAt:         now,
		}
		if err := rec.RecordChainMetric(metric); err != nil {
			log.Warn("failed to record chain metric", zap.Error(err))
		}

		if healthy == 0 {
			msg := fmt.Sprintf("chain %s has no healthy RPC endpoints", chain)
			log.Error(msg)
			if err := rec.RecordAlert("critical", msg, chain); err != nil {
				log.Warn("failed to record alert", zap.Error(err))
			}
		}
	}
}
