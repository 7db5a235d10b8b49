// Command consumer mirrors ambulance location events from Kafka into the
// Redis GEO fleet index serving /api/fleet/nearby.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/Sanjarbek17/MedAI/internal/geo"
	"github.com/Sanjarbek17/MedAI/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total location messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	fleetUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_fleet_updates_total",
		Help: "Total successful fleet index updates",
	})
	fleetErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_fleet_errors_total",
		Help: "Total fleet index errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, fleetUpdates, fleetErrors)
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokers := splitBrokers(os.Getenv("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	topic := envOr("KAFKA_TOPIC", "ambulance-locations")
	group := envOr("KAFKA_GROUP", "fleet-mirror")
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	geoKey := envOr("REDIS_GEO_KEY", "ambulances_geo")

	fleet := geo.NewFleetIndex(redisAddr, os.Getenv("REDIS_PASSWORD"), geoKey)
	defer fleet.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := fleet.Ping(r.Context()); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		log.Printf("metrics/health listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer r.Close()

	log.Printf("consumer listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var ev models.ActorLocationEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.ActorID == "" {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}

		if err := updateFleetWithRetry(ctx, fleet, ev, 3, 200*time.Millisecond); err != nil {
			fleetErrors.Inc()
			log.Printf("fleet update failed for actor=%s: %v", ev.ActorID, err)
			continue
		}
		fleetUpdates.Inc()
	}
}

// FleetUpdater is the subset of the fleet index the loop needs, kept small
// so tests can fake it.
type FleetUpdater interface {
	Upsert(ctx context.Context, driverID string, loc models.Location) error
}

// updateFleetWithRetry applies one location event with bounded retries and
// exponential backoff.
func updateFleetWithRetry(ctx context.Context, fleet FleetUpdater, ev models.ActorLocationEvent, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fleet.Upsert(ctx, ev.ActorID, ev.Location); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

func splitBrokers(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
