package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// MetricsHandler возвращает обработчик для получения базовых метрик реестра
func MetricsHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := map[string]interface{}{
			"active_connections": registry.ClientCount(),
			"generated_at":       time.Now().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics); err != nil {
			log.Printf("Error encoding WebSocket metrics: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

// HealthCheckHandler возвращает обработчик для проверки состояния сервера
func HealthCheckHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		statusCode := http.StatusOK
		clientCount := 0

		if registry != nil {
			clientCount = registry.ClientCount()
		} else {
			status = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":             status,
			"active_connections": clientCount,
			"timestamp":          time.Now().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Error encoding health check response: %v", err)
		}
	}
}
