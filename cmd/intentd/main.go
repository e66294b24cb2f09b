// Command intentd wires the Intent Engine, Solver Matcher, Executor, Orbital
// pools, and MEV Protector into a single process and serves Prometheus
// metrics until terminated.
//
// The chain/bridge side of this reference build uses the package's
// in-memory fakes rather than live RPC clients: dialing real chains is an
// operator concern (RPC URLs, signing keys) outside this module's scope.
// Swap NewFakeChainClient/NewFakeBridgeAdapter for real adapter.ChainClient/
// adapter.BridgeAdapter implementations to run against live chains.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/orbitintent/core/adapter"
	"github.com/orbitintent/core/executor"
	"github.com/orbitintent/core/infrastructure/state"
	"github.com/orbitintent/core/infrastructure/telemetry"
	"github.com/orbitintent/core/intent"
	"github.com/orbitintent/core/matcher"
	"github.com/orbitintent/core/mev"
	"github.com/orbitintent/core/pkg/config"
	"github.com/orbitintent/core/pkg/logger"
	"github.com/orbitintent/core/pool"
	"github.com/orbitintent/core/reputation"
	"github.com/orbitintent/core/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	reg := prometheus.NewRegistry()
	recorder := telemetry.NewRecorder(reg)

	intents := intent.NewEngine(intent.NewMemoryRepository(), adapter.NewECDSAVerifier(), log)

	minStake := new(types.U256)
	_ = minStake.SetFromDecimal(cfg.Matcher.MinStake)
	slashAmount := new(types.U256)
	_ = slashAmount.SetFromDecimal(cfg.Matcher.SlashAmount)
	reputations := reputation.NewRegistry(minStake, slashAmount, idealExecutionSeconds)
	_ = matcher.New(reputations) // held by the service embedding this wiring to drive Submit -> MatchAndDispatch

	protector := newProtector(cfg.Redis, cfg.Protector, log)

	pools := newPools(protector)
	lookup := func(chainID uint64, token0, token1 types.Address) (*pool.Pool, error) {
		return pools.find(chainID, token0, token1)
	}

	chains := map[uint64]adapter.ChainClient{
		adapter.ChainEthereum: adapter.NewFakeChainClient(adapter.ChainEthereum),
		adapter.ChainArbitrum: adapter.NewFakeChainClient(adapter.ChainArbitrum),
		adapter.ChainOptimism: adapter.NewFakeChainClient(adapter.ChainOptimism),
		adapter.ChainBase:     adapter.NewFakeChainClient(adapter.ChainBase),
	}
	bridge := adapter.NewFakeBridgeAdapter("reference-bridge")
	locker := executor.NewFakeLocker()

	exec := executor.New(intents, reputations, lookup, chains, bridge, locker, cfg.Executor, log)
	exec.SetMetrics(recorder) // held by the service embedding this wiring to drive Execute per matched intent

	expireScheduler := cron.New()
	if _, err := expireScheduler.AddFunc("@every 1m", func() {
		n, err := intents.ExpireTick(context.Background(), time.Now())
		if err != nil {
			log.WithError(err).Warn("expire tick")
			return
		}
		if n > 0 {
			log.WithFields(map[string]interface{}{"count": n}).Info("expired intents")
		}
	}); err != nil {
		log.WithError(err).Fatal("schedule expire tick")
	}
	expireScheduler.Start()
	defer expireScheduler.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":9090", Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	log.WithFields(map[string]interface{}{"addr": srv.Addr}).Info("intentd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// idealExecutionSeconds is the "ideal" execution time the reputation
// registry's speed factor and the matcher's speedScore are both centered
// on (spec §4.4).
const idealExecutionSeconds = 30.0

// newProtector builds the MEV Protector from config, persisting outstanding
// commit-reveal state so a restarted node can rebuild it via Restore. It
// uses Redis when cfg.Redis.Addr is configured, falling back to an
// in-memory backend (no restart durability) otherwise.
func newProtector(redisCfg config.RedisConfig, cfg config.ProtectorConfig, log *logger.Logger) *mev.Protector {
	var backend state.PersistenceBackend
	if redisCfg.Addr != "" {
		backend = state.NewRedisBackend(state.RedisBackendConfig{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
	} else {
		backend = state.NewMemoryBackend(5 * time.Minute)
	}
	commitReveal, err := mev.NewCommitRevealStoreWithBackend(mev.CommitRevealConfig{
		MinDelayBlocks: cfg.CommitMinDelayBlocks,
		ExpiryBlocks:   cfg.CommitExpiryBlocks,
	}, backend)
	if err != nil {
		log.WithError(err).Fatal("build commit-reveal store")
	}
	if err := commitReveal.Restore(context.Background()); err != nil {
		log.WithError(err).Warn("restore commit-reveal state")
	}

	twap := mev.NewTWAPGuard(cfg.MaxDeviationBp)
	sandwich := mev.NewSandwichGuard(mev.SandwichGuardConfig{
		WindowBlocks:   cfg.SandwichWindowBlocks,
		CooldownBlocks: cfg.CooldownBlocks,
	})
	batcher := mev.NewBatcher(cfg.BatchWindow)
	return mev.NewProtector(commitReveal, twap, sandwich, batcher)
}
