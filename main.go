package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	alertapp "agrisense-cloud/internal/alerts/application"
	alertrepo "agrisense-cloud/internal/alerts/infrastructure/postgres"
	alertnotify "agrisense-cloud/internal/alerts/notify"
	analytics "agrisense-cloud/internal/analytics/domain"
	influxrepo "agrisense-cloud/internal/analytics/infrastructure/influx"
	analyticsmemory "agrisense-cloud/internal/analytics/infrastructure/memory"
	analyticsrepo "agrisense-cloud/internal/analytics/infrastructure/postgres"
	analyticsinterfaces "agrisense-cloud/internal/analytics/interfaces"
	"agrisense-cloud/internal/eventing"
	frostapp "agrisense-cloud/internal/frost/application"
	frost "agrisense-cloud/internal/frost/domain"
	frostmemory "agrisense-cloud/internal/frost/infrastructure/memory"
	frostrepo "agrisense-cloud/internal/frost/infrastructure/postgres"
	frosttasks "agrisense-cloud/internal/frost/infrastructure/tasks"
	ingestapp "agrisense-cloud/internal/ingest/application"
	ingesthttp "agrisense-cloud/internal/ingest/interfaces/http"
	"agrisense-cloud/internal/observability/metrics"
	state "agrisense-cloud/internal/state/domain"
	statememory "agrisense-cloud/internal/state/infrastructure/memory"
	staterepo "agrisense-cloud/internal/state/infrastructure/postgres"
	statusapp "agrisense-cloud/internal/status/application"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var (
		db          *sql.DB
		sensorRepo  state.SensorStateRepository
		zoneRepo    state.ZoneConfigRepository
		aliasRepo   state.AliasRegistry
		rowWriter   analytics.RowWriter
		seriesRead  analytics.SeriesReader
		leaseRepo   frost.Lease
		ruleRepo    *alertrepo.RuleRepository
		userRepo    *alertrepo.UserRepository
		memoryStore *statememory.Store
	)

	if cfg.StoreBackend == "memory" {
		memoryStore = statememory.NewStore()
		sensorRepo = memoryStore
		zoneRepo = memoryStore.Zones()
		aliasRepo = memoryStore
		rowStore := analyticsmemory.NewRowStore()
		rowWriter = rowStore
		seriesRead = rowStore
		leaseRepo = frostmemory.NewLease()
		logger.Printf("store backend: memory (no persistence)")
	} else {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}

		sensorRepo = staterepo.NewSensorStateRepository(db)
		zoneRepo = staterepo.NewZoneConfigRepository(db)
		aliasRepo = staterepo.NewAliasRegistry(db)
		pgRows := analyticsrepo.NewRowRepository(db)
		rowWriter = pgRows
		seriesRead = analyticsrepo.NewSeriesQuery(db)
		leaseRepo = frostrepo.NewLeaseRepository(db)
		ruleRepo = alertrepo.NewRuleRepository(db)
		userRepo = alertrepo.NewUserRepository(db)
	}

	if cfg.AnalyticsBackend == "influx" {
		influxClient := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		defer influxClient.Close()
		writer, err := influxrepo.NewRowWriter(influxClient, cfg.InfluxOrg, cfg.InfluxBucket)
		if err != nil {
			logger.Fatalf("influx writer error: %v", err)
		}
		rowWriter = writer
		logger.Printf("analytics backend: influx (%s)", cfg.InfluxURL)
	}

	metrics.Init(db, logger)

	bus := eventing.NewInMemoryBus()

	pipelineOpts := []ingestapp.PipelineOption{ingestapp.WithEventBus(bus)}
	if cfg.TasksURL != "" {
		queue, err := frosttasks.NewClient(cfg.TasksURL, cfg.TasksToken)
		if err != nil {
			logger.Fatalf("tasks client error: %v", err)
		}
		frostService, err := frostapp.NewService(leaseRepo, queue, cfg.FrostJobName, cfg.FrostLease, logger)
		if err != nil {
			logger.Fatalf("frost service error: %v", err)
		}
		pipelineOpts = append(pipelineOpts, ingestapp.WithFrostTrigger(frostService))
	}

	pipeline, err := ingestapp.NewPipeline(sensorRepo, zoneRepo, aliasRepo, rowWriter, logger, pipelineOpts...)
	if err != nil {
		logger.Fatalf("pipeline error: %v", err)
	}
	ingestHandler, err := ingesthttp.NewIngestHandler(pipeline, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	if cfg.PushURL != "" && ruleRepo != nil && userRepo != nil {
		pusher, err := alertnotify.NewHTTPPusher(cfg.PushURL, cfg.PushServerKey)
		if err != nil {
			logger.Fatalf("pusher error: %v", err)
		}
		engine, err := alertapp.NewEngine(ruleRepo, userRepo, pusher, logger)
		if err != nil {
			logger.Fatalf("alert engine error: %v", err)
		}
		eventing.Subscribe(bus, engine.HandleSensorUpdated)
	} else {
		logger.Printf("alert engine disabled (no push url or no database)")
	}

	sweepCfg, err := statusapp.LoadConfig()
	if err != nil {
		logger.Fatalf("sweep config error: %v", err)
	}
	sweeper, err := statusapp.NewSweeper(sensorRepo, sweepCfg, logger)
	if err != nil {
		logger.Fatalf("sweeper error: %v", err)
	}
	go sweeper.Start(context.Background())

	seriesHandler, err := analyticsinterfaces.NewSeriesHandler(seriesRead, logger)
	if err != nil {
		logger.Fatalf("series handler error: %v", err)
	}
	seriesXLSX, err := analyticsinterfaces.NewSeriesExportHandler(seriesRead, "xlsx", logger)
	if err != nil {
		logger.Fatalf("series xlsx handler error: %v", err)
	}
	seriesPDF, err := analyticsinterfaces.NewSeriesExportHandler(seriesRead, "pdf", logger)
	if err != nil {
		logger.Fatalf("series pdf handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/sensors", ingestHandler)
	mux.Handle("/api/v1/series", seriesHandler)
	mux.Handle("/api/v1/series/export.xlsx", seriesXLSX)
	mux.Handle("/api/v1/series/export.pdf", seriesPDF)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	StoreBackend     string
	AnalyticsBackend string
	InfluxURL        string
	InfluxToken      string
	InfluxOrg        string
	InfluxBucket     string
	PushURL          string
	PushServerKey    string
	TasksURL         string
	TasksToken       string
	FrostJobName     string
	FrostLease       time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		StoreBackend:     getenvDefault("STORE_BACKEND", "postgres"),
		AnalyticsBackend: getenvDefault("ANALYTICS_BACKEND", "postgres"),
		InfluxURL:        getenvDefault("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:      getenvDefault("INFLUX_TOKEN", ""),
		InfluxOrg:        getenvDefault("INFLUX_ORG", ""),
		InfluxBucket:     getenvDefault("INFLUX_BUCKET", ""),
		PushURL:          getenvDefault("PUSH_URL", ""),
		PushServerKey:    getenvDefault("PUSH_SERVER_KEY", ""),
		TasksURL:         getenvDefault("TASKS_URL", ""),
		TasksToken:       getenvDefault("TASKS_TOKEN", ""),
		FrostJobName:     getenvDefault("FROST_JOB_NAME", "frost-protection"),
		FrostLease:       getenvDuration("FROST_LEASE", 10*time.Minute),
	}
	if cfg.StoreBackend != "memory" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required (or set STORE_BACKEND=memory)")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
