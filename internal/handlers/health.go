package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// HealthHandler представляет обработчик для проверки здоровья системы.
// Незаданная зависимость (режим без Postgres, Redis или Kafka) считается отключённой, а не упавшей.
type HealthHandler struct {
	db           DBHealth
	redisClient  RedisHealth
	kafkaBrokers []string
	kafkaCheck   func([]string) error
}

// NewHealthHandler создает новый обработчик здоровья
func NewHealthHandler(db DBHealth, redisClient RedisHealth, kafkaBrokers []string, kafkaCheck func([]string) error) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redisClient:  redisClient,
		kafkaBrokers: kafkaBrokers,
		kafkaCheck:   kafkaCheck,
	}
}

// HealthResponse представляет ответ проверки здоровья
type HealthResponse struct {
	Service  string            `json:"service"`
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
}

var startTime = time.Now()

const (
	serviceName    = "booking-pricing"
	statusDisabled = "disabled"
)

// Health проверяет состояние всех компонентов системы
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	overallStatus := "healthy"
	record := func(name string, err error, enabled bool) {
		switch {
		case !enabled:
			services[name] = statusDisabled
		case err != nil:
			services[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		default:
			services[name] = "healthy"
		}
	}

	dbEnabled, dbErr := h.checkDB()
	record("database", dbErr, dbEnabled)
	redisEnabled, redisErr := h.checkRedis(ctx)
	record("redis", redisErr, redisEnabled)
	kafkaEnabled, kafkaErr := h.checkKafka()
	record("kafka", kafkaErr, kafkaEnabled)

	response := HealthResponse{
		Service:  serviceName,
		Status:   overallStatus,
		Services: services,
		Version:  "1.0.0",
		Uptime:   time.Since(startTime).String(),
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, response)
}

// Readiness проверяет готовность приложения к обработке запросов
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Отключённая зависимость на готовность не влияет.
	checks := []struct {
		name  string
		check func() (bool, error)
	}{
		{"Database", h.checkDB},
		{"Redis", func() (bool, error) { return h.checkRedis(ctx) }},
		{"Kafka", h.checkKafka},
	}
	disabled := make([]string, 0, len(checks))
	for _, c := range checks {
		enabled, err := c.check()
		if err != nil {
			writeErrorResponse(w, http.StatusServiceUnavailable, c.name+" not ready")
			return
		}
		if !enabled {
			disabled = append(disabled, strings.ToLower(c.name))
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"disabled": disabled,
	})
}

// Liveness проверяет, что приложение живо
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(startTime).String(),
	})
}

func (h *HealthHandler) checkDB() (bool, error) {
	if h.db == nil {
		return false, nil
	}
	return true, h.db.Health()
}

func (h *HealthHandler) checkRedis(ctx context.Context) (bool, error) {
	if h.redisClient == nil {
		return false, nil
	}
	return true, h.redisClient.Health(ctx)
}

func (h *HealthHandler) checkKafka() (bool, error) {
	if h.kafkaCheck == nil {
		return false, nil
	}
	return true, h.kafkaCheck(h.kafkaBrokers)
}

// CheckKafkaHealth проверяет доступность Kafka брокеров.
func CheckKafkaHealth(brokers []string) error {
	return checkKafkaHealth(brokers)
}

// checkKafkaHealth проверяет доступность Kafka брокеров
func checkKafkaHealth(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Net.DialTimeout = 3 * time.Second
	cfg.Net.ReadTimeout = 5 * time.Second
	cfg.Net.WriteTimeout = 5 * time.Second
	cfg.Metadata.Retry.Max = 1
	cfg.Metadata.Retry.Backoff = 500 * time.Millisecond

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return nil
}
