// main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ahmadhojati/geoextract/crs"
	"github.com/ahmadhojati/geoextract/extract"
	"github.com/ahmadhojati/geoextract/raster"
)

const appName = "geoextract"

var (
	httpAPIServer     *http.Server
	httpMetricsServer *http.Server

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoextract_operation_duration_seconds",
		Help:    "Duration of extraction operations.",
		Buckets: []float64{0.01, 0.1, 0.3, 0.6, 1, 3, 6, 9},
	}, []string{"op"})
	operationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoextract_operation_errors_total",
		Help: "Extraction operations that failed.",
	}, []string{"op"})
)

// Config holds all configuration for the application, loaded from
// environment variables.
type Config struct {
	LogLevel          string  `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTPPort          int     `env:"HTTP_PORT" envDefault:"8080"`
	HTTPMetricsPort   int     `env:"METRICS_PORT" envDefault:"8888"`
	RasterSource      string  `env:"RASTER_SOURCE"`
	CacheMaxSize      int64   `env:"CACHE_MAX_SIZE" envDefault:"1024"`
	CacheItemsToPrune uint32  `env:"CACHE_ITEMS_TO_PRUNE" envDefault:"100"`
	LeeWindow         int     `env:"LEE_WINDOW" envDefault:"7"`
	OldResolution     float64 `env:"OLD_RESOLUTION_METERS" envDefault:"30"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("failed to parse config: %+v\n", err)
		os.Exit(1)
	}

	logger := createLogger(cfg, appName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	extractor := extract.New(extract.WithTileCache(cfg.CacheMaxSize, cfg.CacheItemsToPrune))

	g.Go(func() error {
		return startMetricsServer(logger, cfg)
	})
	g.Go(func() error {
		return startAPIServer(logger, cfg, extractor)
	})

	select {
	case <-interrupt:
		slog.Warn("received termination signal, starting graceful shutdown")
		cancel()
	case <-ctx.Done():
		slog.Warn("context cancelled, starting graceful shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpMetricsServer != nil {
		if err := httpMetricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP metrics server shutdown error", "error", err)
		}
	}
	if httpAPIServer != nil {
		if err := httpAPIServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP API server shutdown error", "error", err)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server group returned an error", "error", err)
		os.Exit(2)
	}
}

func startMetricsServer(logger *slog.Logger, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.HTTPMetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	prometheus.MustRegister(operationDuration, operationErrors)

	httpMetricsServer = &http.Server{Addr: addr, Handler: mux}
	logger.Info("HTTP metrics server listening", "address", addr)

	if err := httpMetricsServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP metrics server failed: %w", err)
	}
	return nil
}

func startAPIServer(logger *slog.Logger, cfg Config, extractor *extract.Extractor) error {
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	mux := http.NewServeMux()

	mux.HandleFunc("/extract/", extractHandler(cfg, extractor))
	mux.HandleFunc("/extractBands/", extractBandsHandler(cfg, extractor))
	mux.HandleFunc("/resampleExtract/", resampleExtractHandler(cfg, extractor))
	mux.HandleFunc("/leeFilter/", leeFilterHandler(cfg, extractor))
	mux.HandleFunc("/utmZone/", utmZoneHandler())
	mux.HandleFunc("/epsg/", epsgHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpAPIServer = &http.Server{Addr: addr, Handler: mux}
	logger.Info("HTTP API server listening", "address", addr)

	if err := httpAPIServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP API server failed: %w", err)
	}
	return nil
}

// parseCoordinatePath extracts "lat/lon" path segments after the prefix.
func parseCoordinatePath(r *http.Request, prefix string) (extract.Coordinate, error) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if len(pathParts) != 2 {
		return extract.Coordinate{}, errors.New("invalid URL format, expected {lat}/{lon}")
	}
	lat, err := strconv.ParseFloat(pathParts[0], 64)
	if err != nil {
		return extract.Coordinate{}, errors.New("invalid latitude")
	}
	lon, err := strconv.ParseFloat(pathParts[1], 64)
	if err != nil {
		return extract.Coordinate{}, errors.New("invalid longitude")
	}
	return extract.Coordinate{Lat: lat, Lon: lon}, nil
}

// rasterSource picks the source for a request: the "source" query
// parameter when present, the configured default otherwise.
func rasterSource(cfg Config, r *http.Request) (string, error) {
	if s := r.URL.Query().Get("source"); s != "" {
		return s, nil
	}
	if cfg.RasterSource == "" {
		return "", errors.New("no raster source configured and none supplied")
	}
	return cfg.RasterSource, nil
}

func writeExtractionError(w http.ResponseWriter, op string, err error) {
	operationErrors.WithLabelValues(op).Inc()
	if errors.Is(err, extract.ErrInvalidCoordinate) ||
		errors.Is(err, extract.ErrInvalidWindow) ||
		errors.Is(err, raster.ErrInvalidResolution) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func extractHandler(cfg Config, extractor *extract.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "extract"
		timer := prometheus.NewTimer(operationDuration.WithLabelValues(op))
		defer timer.ObserveDuration()

		c, err := parseCoordinatePath(r, "/extract/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		source, err := rasterSource(cfg, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := extractor.ExtractValue(r.Context(), source, c)
		if err != nil {
			writeExtractionError(w, op, err)
			return
		}
		writeJSON(w, map[string]any{"latitude": c.Lat, "longitude": c.Lon, "value": value})
	}
}

func extractBandsHandler(cfg Config, extractor *extract.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "extract_bands"
		timer := prometheus.NewTimer(operationDuration.WithLabelValues(op))
		defer timer.ObserveDuration()

		c, err := parseCoordinatePath(r, "/extractBands/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		source, err := rasterSource(cfg, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		values, err := extractor.ValuesAtCoordinate(r.Context(), source, c)
		if err != nil {
			writeExtractionError(w, op, err)
			return
		}
		writeJSON(w, map[string]any{"latitude": c.Lat, "longitude": c.Lon, "values": values})
	}
}

func resampleExtractHandler(cfg Config, extractor *extract.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "resample_extract"
		timer := prometheus.NewTimer(operationDuration.WithLabelValues(op))
		defer timer.ObserveDuration()

		c, err := parseCoordinatePath(r, "/resampleExtract/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		source, err := rasterSource(cfg, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		oldRes := cfg.OldResolution
		if s := r.URL.Query().Get("old"); s != "" {
			if oldRes, err = strconv.ParseFloat(s, 64); err != nil {
				http.Error(w, "invalid old resolution", http.StatusBadRequest)
				return
			}
		}
		newRes := oldRes
		if s := r.URL.Query().Get("new"); s != "" {
			if newRes, err = strconv.ParseFloat(s, 64); err != nil {
				http.Error(w, "invalid new resolution", http.StatusBadRequest)
				return
			}
		}
		value, err := extractor.ResampleAndExtractValue(r.Context(), source, c, oldRes, newRes)
		if err != nil {
			writeExtractionError(w, op, err)
			return
		}
		writeJSON(w, map[string]any{
			"latitude": c.Lat, "longitude": c.Lon,
			"old_resolution_meters": oldRes, "new_resolution_meters": newRes,
			"value": value,
		})
	}
}

func leeFilterHandler(cfg Config, extractor *extract.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "lee_filter"
		timer := prometheus.NewTimer(operationDuration.WithLabelValues(op))
		defer timer.ObserveDuration()

		c, err := parseCoordinatePath(r, "/leeFilter/")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		source, err := rasterSource(cfg, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		window := cfg.LeeWindow
		if s := r.URL.Query().Get("window"); s != "" {
			if window, err = strconv.Atoi(s); err != nil {
				http.Error(w, "invalid window size", http.StatusBadRequest)
				return
			}
		}
		value, err := extractor.LeeFilter(r.Context(), window, source, c)
		if err != nil {
			writeExtractionError(w, op, err)
			return
		}
		writeJSON(w, map[string]any{
			"latitude": c.Lat, "longitude": c.Lon,
			"window_size": window, "value": value,
		})
	}
}

func utmZoneHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lonStr := strings.TrimPrefix(r.URL.Path, "/utmZone/")
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			http.Error(w, "invalid longitude", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"longitude": lon, "utm_zone": crs.UTMZone(lon)})
	}
}

func epsgHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/epsg/"), "/")
		if len(pathParts) != 2 {
			http.Error(w, "invalid URL format, expected {lat}/{lon}", http.StatusBadRequest)
			return
		}
		lat, err := strconv.ParseFloat(pathParts[0], 64)
		if err != nil {
			http.Error(w, "invalid latitude", http.StatusBadRequest)
			return
		}
		lon, err := strconv.ParseFloat(pathParts[1], 64)
		if err != nil {
			http.Error(w, "invalid longitude", http.StatusBadRequest)
			return
		}
		code, err := crs.EPSGForCoordinate(lat, lon)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{
			"latitude": lat, "longitude": lon,
			"utm_zone": crs.UTMZone(lon), "hemisphere": crs.HemisphereFor(lat), "epsg": code,
		})
	}
}

func createLogger(cfg Config, appName string) *slog.Logger {
	var programLevel slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		programLevel = slog.LevelDebug
	case "INFO":
		programLevel = slog.LevelInfo
	case "WARN":
		programLevel = slog.LevelWarn
	case "ERROR":
		programLevel = slog.LevelError
	default:
		programLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     programLevel,
		AddSource: programLevel <= slog.LevelDebug,
	}).WithAttrs([]slog.Attr{slog.String("app", appName)})
	return slog.New(handler)
}
