package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"MicroTrade/internal/domain/repository"
	domservice "MicroTrade/internal/domain/service"
	"MicroTrade/internal/handler/api"
	"MicroTrade/internal/ledger"
	internalrepo "MicroTrade/internal/repository"
	"MicroTrade/internal/service/venue"
	"MicroTrade/internal/services/features"
	"MicroTrade/internal/services/learning"
	"MicroTrade/internal/services/predict"
	"MicroTrade/internal/services/pricing"
	"MicroTrade/internal/usecase"
	pkgcache "MicroTrade/pkg/cache"
	pkgch "MicroTrade/pkg/clickhouse"
	"MicroTrade/pkg/config"
	xhttp "MicroTrade/pkg/http"
	pkgkafka "MicroTrade/pkg/kafka"
	applogger "MicroTrade/pkg/logger"
	"MicroTrade/pkg/metrics"
	"MicroTrade/pkg/server"
)

// ProvideLogger creates the application logger. When Kafka is enabled,
// repeated log lines are aggregated and shipped to a side topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return l, nil
}

// kafkaLogPublisher adapts the producer to the log collector's flush hook.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// backend is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeStore creates the ClickHouse trade store. Nil when ClickHouse
// is disabled; the ledger then runs in-memory only.
func ProvideTradeStore(chClient *pkgch.Client, l *applogger.Logger) repository.TradeStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHTradeStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventSink publishes lifecycle events to Kafka, or swallows them
// when no broker is configured.
func ProvideEventSink(producer *pkgkafka.Producer, cfg *config.Config) repository.EventSink {
	if producer == nil {
		return internalrepo.NopEventSink{}
	}
	return internalrepo.NewKafkaEventSink(producer, cfg.Kafka.Topic)
}

// ProvideStateCache backs model-state warm starts with Redis when available,
// falling back to the in-process cache. The Redis path is layered so reads
// hit memory first.
func ProvideStateCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, err
	}
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvidePaperVenue creates the in-process venue.
func ProvidePaperVenue(cfg *config.Config) *venue.Paper {
	return venue.NewPaper(cfg.Venue.StartingBalance, cfg.Trading.TakerFee)
}

// ProvideAccount wraps the venue account with a short-lived balance cache.
func ProvideAccount(paper *venue.Paper, cfg *config.Config) repository.Account {
	return venue.NewCachedAccount(paper, cfg.Trading.BalanceCacheTTL)
}

// ProvideMarketStream creates the venue WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return venue.NewStream(cfg.Venue.WebSocketURL, l,
		venue.WithAPIKey(cfg.Venue.APIKey),
		venue.WithReconnectDelay(cfg.Venue.ReconnectDelay),
		venue.WithPingInterval(cfg.Venue.PingInterval),
	)
}

// ProvideFeed caches the latest snapshot per symbol off the stream.
func ProvideFeed(stream repository.MarketStream, cfg *config.Config, l *applogger.Logger) *venue.Feed {
	return venue.NewFeed(stream, cfg.Trading.Symbols, cfg.Venue.SnapshotMaxAge, l)
}

// ProvidePricing creates the fee-aware pricing engine.
func ProvidePricing(cfg *config.Config) *pricing.Engine {
	return pricing.NewEngine(pricing.Config{
		TakerFee:           cfg.Trading.TakerFee,
		MakerFee:           cfg.Trading.MakerFee,
		MaxAccountFraction: cfg.Trading.MaxAccountFraction,
		MaxTradeFraction:   cfg.Trading.MaxTradeFraction,
		LotStep:            cfg.Trading.LotStep,
		MinQuantity:        cfg.Trading.MinQuantity,
	})
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor(pricer *pricing.Engine) *features.Extractor {
	return features.NewExtractor(pricer.RoundTripFee())
}

// ProvidePredictor creates the classifier front end.
func ProvidePredictor(cfg *config.Config, l *applogger.Logger) domservice.Predictor {
	return predict.NewEngine(predict.Config{
		Enabled:           cfg.ML.Enabled,
		MinTrainingTrades: cfg.ML.MinTrainingTrades,
	}, l)
}

// ProvideLedger creates the trade ledger.
func ProvideLedger(store repository.TradeStore, l *applogger.Logger) *ledger.Ledger {
	return ledger.New(store, l)
}

// ProvideTrainer creates the model trainer.
func ProvideTrainer(cfg *config.Config) domservice.Trainer {
	fit := predict.DefaultFitOptions()
	fit.Epochs = cfg.ML.Epochs
	return learning.NewLogitTrainer(learning.TrainerConfig{
		MinTrainingTrades: cfg.ML.MinTrainingTrades,
		Fit:               fit,
	})
}

// ProvideLearningLoop owns the active model state and retraining.
func ProvideLearningLoop(
	cfg *config.Config,
	trainer domservice.Trainer,
	ldg *ledger.Ledger,
	state pkgcache.Service,
	events repository.EventSink,
	m repository.Metrics,
	l *applogger.Logger,
) *learning.Loop {
	return learning.NewLoop(learning.LoopConfig{
		RetrainIncrement: cfg.ML.RetrainIncrement,
		Enabled:          cfg.ML.Enabled,
	}, trainer, ldg, state, events, m, l)
}

// ProvideTraders builds one trader per configured symbol.
func ProvideTraders(
	cfg *config.Config,
	feed *venue.Feed,
	account repository.Account,
	paper *venue.Paper,
	predictor domservice.Predictor,
	loop *learning.Loop,
	extractor *features.Extractor,
	pricer *pricing.Engine,
	ldg *ledger.Ledger,
	events repository.EventSink,
	m repository.Metrics,
	l *applogger.Logger,
) []*usecase.Trader {
	tcfg := usecase.TraderConfig{
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		StopLossFraction:    cfg.Trading.StopLossFraction,
		MaxHold:             cfg.Trading.MaxHold,
		MaxVenueRetries:     cfg.Trading.MaxVenueRetries,
		RetryBackoff:        cfg.Trading.RetryBackoff,
		HistoryWindow:       cfg.Trading.HistoryWindow,
	}
	traders := make([]*usecase.Trader, 0, len(cfg.Trading.Symbols))
	for _, symbol := range cfg.Trading.Symbols {
		traders = append(traders, usecase.NewTrader(
			symbol, tcfg, feed, account, paper,
			predictor, loop, extractor, pricer, ldg, events, m, l,
		))
	}
	return traders
}

// ProvideEngine drives the traders through periodic decision cycles.
func ProvideEngine(
	cfg *config.Config,
	traders []*usecase.Trader,
	ldg *ledger.Ledger,
	store repository.TradeStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(usecase.EngineConfig{
		Interval: cfg.Trading.CycleInterval,
		Workers:  cfg.Trading.Workers,
	}, traders, ldg, store, m, l)
}

// ProvideStatusHandler serves the read-only status API.
func ProvideStatusHandler(l *applogger.Logger, ldg *ledger.Ledger, loop *learning.Loop) xhttp.Handler {
	return api.NewStatusHandler(l, ldg, loop)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	feed *venue.Feed,
	loop *learning.Loop,
	ldg *ledger.Ledger,
	store repository.TradeStore,
	events repository.EventSink,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, engine, feed, loop, ldg, store, events, chClient, handler)
}
