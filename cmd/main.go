package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blackarb/arbengine/configs"
	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/execution"
	"github.com/blackarb/arbengine/internal/flashloan"
	"github.com/blackarb/arbengine/internal/logging"
	"github.com/blackarb/arbengine/internal/risk"
	"github.com/blackarb/arbengine/internal/scanner"
	"github.com/blackarb/arbengine/internal/store"
	"github.com/blackarb/arbengine/internal/telemetry"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/util"
	"github.com/blackarb/arbengine/internal/venue"
)

const (
	exitOK                = 0
	exitConfigInvalid     = 1
	exitStoreUnreachable  = 2
	exitNoHealthyChains   = 3
)

func main() {
	os.Exit(run())
}

// run wires the whole fleet and blocks until a shutdown signal arrives,
// mirroring the teacher's goroutine-plus-report-channel shape in
// cmd/main.go but generalized to the named worker fleet §5 describes:
// Scanner[Chain], Executor, Retention, ApiPublisher.
func run() int {
	// Loading a local .env is best-effort: production deployments set these
	// through the environment directly and carry no .env file at all.
	_ = godotenv.Load(envOr("ENV_FILE", ".env"))

	log, err := logging.New(logging.Config{Level: envOr("LOG_LEVEL", "info"), Production: os.Getenv("LOG_PRODUCTION") == "true"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return exitConfigInvalid
	}
	defer log.Sync()

	cfg, err := configs.LoadConfig(envOr("CONFIG_PATH", "configs/config.yaml"))
	if err != nil {
		log.Error("config invalid", zap.Error(err))
		return exitConfigInvalid
	}

	venues, err := configs.LoadVenueCatalog(envOr("VENUE_CATALOG_PATH", "configs/venues.yaml"))
	if err != nil {
		log.Error("venue catalog invalid", zap.Error(err))
		return exitConfigInvalid
	}

	signerKey, signerChainIDs, err := loadSigner()
	if err != nil {
		log.Error("signer material invalid", zap.Error(err))
		return exitConfigInvalid
	}

	rec, err := store.NewSQLiteRecorder(cfg.StorePath)
	if err != nil {
		log.Error("store unreachable", zap.Error(err))
		return exitStoreUnreachable
	}
	defer rec.Close()

	nonTerminal, err := rec.NonTerminalExecutions()
	if err != nil {
		log.Error("failed to load persisted executions", zap.Error(err))
		return exitStoreUnreachable
	}
	if err := execution.RefuseResumeIfNonTerminal(toExecutions(nonTerminal)); err != nil {
		log.Error("refusing to resume with non-terminal executions", zap.Error(err))
		return exitConfigInvalid
	}

	pools := dialChainPools(log, cfg)
	if len(pools) == 0 {
		log.Error("no healthy chain endpoints configured")
		return exitNoHealthyChains
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	keySigner := execution.NewKeySigner(signerKey, signerChainIDs)

	providers := defaultProviders(pools)

	sources, adapters := buildSources(log, pools, venues)
	sc := scanner.NewScanner(sources, cfg.ScanInterval, scanner.DefaultWeights())
	sc.MinProfitUSD = cfg.MinProfitUSD
	sc.SlippageTolerance = decimal.NewFromFloat(cfg.SlippageTolerance)
	sc.UseFlashLoans = cfg.UseFlashLoans
	sc.FlashProviders = providers
	sc.Gas = poolGasSource{pools: pools}
	sc.GasBudgetUnits = defaultGasBudgetUnits(pools)
	sc.NativeTokenPriceUSD = nativeTokenPriceUSD

	publisher := telemetry.NewPublisher(sc, metrics)
	riskLimits := risk.DefaultLimits()
	riskLimits.MaxGasPriceGwei = cfg.MaxGasPriceGwei
	riskLimits.MaxPositionSize = cfg.MaxPositionSize
	riskFilter := risk.NewFilter(riskLimits)

	engines := &engineCache{
		cache:     make(map[string]*execution.Engine),
		pools:     pools,
		adapters:  adapters,
		providers: providers,
		signer:    keySigner,
		dryRun:    cfg.DryRunMode,
	}

	stats := &statsAggregator{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	startWorker(&wg, "Scanner", func() { runScanner(ctx, log, sc, publisher, metrics, rec, cfg.ScanInterval) })
	startWorker(&wg, "Executor", func() { runExecutor(ctx, log, sc, publisher, riskFilter, engines, rec, stats, cfg) })
	startWorker(&wg, "Retention", func() { runRetention(ctx, log, rec) })
	startWorker(&wg, "ApiPublisher", func() { runApiPublisher(ctx, log, publisher, sc, engines, rec, stats) })
	startWorker(&wg, "ChainHealth", func() { runChainHealth(ctx, log, rec, pools, cfg.ScanInterval*6) })

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	wg.Wait()

	return exitOK
}

func startWorker(wg *sync.WaitGroup, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// runScanner is the Scanner[Chain] worker role: it ticks the scanner on its
// configured interval, journals every live opportunity, and publishes a
// snapshot frame after every tick.
func runScanner(ctx context.Context, log *zap.Logger, sc *scanner.Scanner, pub *telemetry.Publisher, m *telemetry.Metrics, rec *store.Recorder, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sc.Tick(ctx); err != nil {
				log.Warn("scan tick failed", zap.Error(err))
				continue
			}
			m.ScanTicksTotal.WithLabelValues("all").Inc()
			for _, opp := range sc.Live() {
				if err := rec.RecordOpportunity(opp); err != nil {
					log.Warn("failed to record opportunity", zap.Error(err))
				}
			}
			pub.PublishSnapshotFrame()
		}
	}
}

// runExecutor is the Executor worker role: it admits live opportunities
// through the risk filter and drives admitted ones through the execution
// engine, recording every terminal execution to the store.
func runExecutor(ctx context.Context, log *zap.Logger, sc *scanner.Scanner, pub *telemetry.Publisher, filter *risk.Filter, engines *engineCache, rec *store.Recorder, stats *statsAggregator, cfg *configs.Config) {
	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !pub.AutoExecuteArmed() {
				continue
			}
			for _, opp := range sc.Live() {
				gasGwei := engines.currentGasGwei(ctx, opp.Chain)
				ok, reason := filter.Admit(opp, gasGwei, time.Now())
				if !ok {
					continue
				}
				eng, err := engines.get(opp)
				if err != nil {
					log.Warn("no engine available for opportunity", zap.String("pair", opp.Pair.Key()), zap.Error(err))
					continue
				}
				exec, err := eng.Submit(ctx, opp)
				if err != nil {
					log.Warn("execution submit failed", zap.String("opportunity", opp.Id), zap.Error(err))
					if aErr := rec.RecordAlert("warning", fmt.Sprintf("execution submit failed for %s: %v", opp.Id, err), opp.Chain); aErr != nil {
						log.Warn("failed to record alert", zap.Error(aErr))
					}
				}
				if exec == nil {
					continue
				}
				if err := rec.RecordExecution(*exec); err != nil {
					log.Warn("failed to record execution", zap.Error(err))
				}
				stats.observe(*exec)
				pub.RecordSettlement(*exec)
				_ = reason
			}
		}
	}
}

// runRetention is the low-priority Retention worker role from §5, sweeping
// every store series down to its §4.G retention window once a day.
func runRetention(ctx context.Context, log *zap.Logger, rec *store.Recorder) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rec.Sweep(time.Now()); err != nil {
				log.Warn("retention sweep failed", zap.Error(err))
			}
		}
	}
}

// runApiPublisher is the ApiPublisher worker role: it periodically refreshes
// the stats and chain-status frames so observers see them without waiting
// on a scan tick, and journals the same rollup as a StatsSnapshotRecord.
func runApiPublisher(ctx context.Context, log *zap.Logger, pub *telemetry.Publisher, sc *scanner.Scanner, engines *engineCache, rec *store.Recorder, stats *statsAggregator) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	pub.Start()
	for {
		select {
		case <-ctx.Done():
			pub.Stop()
			return
		case <-ticker.C:
			pub.PublishStatsFrame()
			pub.PublishChainStatusFrame()
			snapshot := stats.snapshot(len(sc.Live()), engines.totalInFlight())
			if err := rec.RecordStatsSnapshot(snapshot); err != nil {
				log.Warn("failed to record stats snapshot", zap.Error(err))
			}
		}
	}
}

func dialChainPools(log *zap.Logger, cfg *configs.Config) map[types.ChainId]*chainpool.Pool {
	pools := make(map[types.ChainId]*chainpool.Pool)
	for chain, rpc := range cfg.ChainRPCs {
		client, err := ethclient.Dial(rpc)
		if err != nil {
			log.Warn("failed to dial chain endpoint", zap.String("chain", chain.String()), zap.Error(err))
			continue
		}
		endpoint := chainpool.NewEndpoint(rpc, client, 10, 20)
		pools[chain] = chainpool.NewPool(chain, []*chainpool.Endpoint{endpoint})
	}
	return pools
}

// buildSources constructs one pricing-model adapter per (chain, model) pair
// actually used by the venue catalog, and pairs every catalog entry with its
// matching adapter to produce the scanner's Source list.
func buildSources(log *zap.Logger, pools map[types.ChainId]*chainpool.Pool, venues []configs.VenueEntry) ([]scanner.Source, map[types.ChainId]map[types.PricingModel]venue.Adapter) {
	adapters := make(map[types.ChainId]map[types.PricingModel]venue.Adapter)
	sources := make([]scanner.Source, 0, len(venues))

	for _, v := range venues {
		pool, ok := pools[v.Venue.Chain]
		if !ok {
			continue
		}
		if _, ok := adapters[v.Venue.Chain]; !ok {
			adapters[v.Venue.Chain] = make(map[types.PricingModel]venue.Adapter)
		}
		a, ok := adapters[v.Venue.Chain][v.Venue.Model]
		if !ok {
			built, err := newAdapter(pool, v.Venue.Model)
			if err != nil {
				log.Warn("failed to build venue adapter", zap.String("venue", string(v.Venue.Name)), zap.Error(err))
				continue
			}
			a = built
			adapters[v.Venue.Chain][v.Venue.Model] = a
		}
		sources = append(sources, scanner.Source{Chain: v.Venue.Chain, Venue: v.Venue, Pair: v.Pair, Adapter: a})
	}
	return sources, adapters
}

func newAdapter(chain chainpool.ChainClient, model types.PricingModel) (venue.Adapter, error) {
	switch model {
	case types.ConstantProductV2:
		return venue.NewConstantProductAdapter(chain)
	case types.ConcentratedV3:
		return venue.NewConcentratedAdapter(chain)
	case types.StableCurve:
		return venue.NewStableCurveAdapter(chain)
	case types.WeightedPool:
		return venue.NewWeightedPoolAdapter(chain)
	default:
		return nil, fmt.Errorf("unsupported pricing model %s", model)
	}
}

// defaultProviders builds one zero-fee flash-loan provider per chain with an
// effectively unbounded liquidity ceiling, standing in for an on-chain
// liquidity query a production deployment would perform against its
// configured lender pool before every plan.
func defaultProviders(pools map[types.ChainId]*chainpool.Pool) map[types.ChainId][]flashloan.Provider {
	out := make(map[types.ChainId][]flashloan.Provider, len(pools))
	for chain := range pools {
		out[chain] = []flashloan.Provider{{
			Name:      "default",
			FeeBps:    0,
			Liquidity: decimal.New(1, 30),
		}}
	}
	return out
}

// chainIDs is the canonical EVM chain ID for every supported ChainId,
// needed to pick an EIP-155-or-later transaction signer.
var chainIDs = map[types.ChainId]int64{
	types.Ethereum:  1,
	types.Polygon:   137,
	types.Arbitrum:  42161,
	types.BSC:       56,
	types.Avalanche: 43114,
	types.Base:      8453,
}

func loadSigner() (*ecdsa.PrivateKey, map[types.ChainId]*big.Int, error) {
	encryptedPk := os.Getenv("ENC_PK")
	key := os.Getenv("KEY")
	if encryptedPk == "" || key == "" {
		return nil, nil, fmt.Errorf("ENC_PK and KEY must both be set")
	}

	pkHex, err := util.Decrypt([]byte(key), encryptedPk)
	if err != nil {
		return nil, nil, fmt.Errorf("decrypt signer key: %w", err)
	}
	priv, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, nil, fmt.Errorf("parse signer key: %w", err)
	}

	ids := make(map[types.ChainId]*big.Int, len(chainIDs))
	for chain, id := range chainIDs {
		ids[chain] = big.NewInt(id)
	}
	return priv, ids, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func toExecutions(records []store.ExecutionRecord) []types.Execution {
	out := make([]types.Execution, 0, len(records))
	for _, r := range records {
		out = append(out, types.Execution{
			Id:    r.ExecutionId,
			Chain: types.ChainId(r.Chain),
			State: types.ExecutionState(r.State),
		})
	}
	return out
}
