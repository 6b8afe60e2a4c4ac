package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию движка обнаружения циклов.
type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Logging LoggingConfig
}

// ServerConfig - настройки HTTP-поверхности (/metrics, /healthz).
type ServerConfig struct {
	Port int
	Host string
}

// EngineConfig - параметры детектора арбитражных циклов.
type EngineConfig struct {
	// MinProfitThreshold - минимальный процент прибыли цикла, чтобы
	// попасть в get_recent_opportunities (спецификация §4.3).
	MinProfitThreshold float64

	// MaxPositionSize - верхняя граница для Opportunity.MaxVolume.
	MaxPositionSize float64

	EnableTriangleArbitrage bool // циклы в пределах одной площадки
	EnableCrossExchange     bool // циклы, проходящие через несколько площадок

	// DetectionPeriod - интервал между запусками сканирования графа.
	DetectionPeriod time.Duration

	// OpportunityRingCapacity - размер кольцевого буфера недавних находок.
	OpportunityRingCapacity int

	// MaxCurrencies - верхняя граница числа узлов графа (maxN).
	MaxCurrencies int

	// IngressQueueSize - ёмкость канала входящих тиков.
	IngressQueueSize int
}

// LoggingConfig - настройки логирования.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Engine: EngineConfig{
			MinProfitThreshold:      getEnvAsFloat("MIN_PROFIT_THRESHOLD", 0.1),
			MaxPositionSize:         getEnvAsFloat("MAX_POSITION_SIZE", 1000.0),
			EnableTriangleArbitrage: getEnvAsBool("ENABLE_TRIANGLE_ARBITRAGE", true),
			EnableCrossExchange:     getEnvAsBool("ENABLE_CROSS_EXCHANGE", true),
			DetectionPeriod:         getEnvAsDuration("DETECTION_PERIOD", 10*time.Millisecond),
			OpportunityRingCapacity: getEnvAsInt("OPPORTUNITY_RING_CAPACITY", 1000),
			MaxCurrencies:           getEnvAsInt("MAX_CURRENCIES", 100),
			IngressQueueSize:        getEnvAsInt("INGRESS_QUEUE_SIZE", 65536),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Engine.MinProfitThreshold <= 0 {
		return nil, fmt.Errorf("MIN_PROFIT_THRESHOLD must be positive")
	}
	if cfg.Engine.MaxPositionSize <= 0 {
		return nil, fmt.Errorf("MAX_POSITION_SIZE must be positive")
	}
	if cfg.Engine.MaxCurrencies <= 0 {
		return nil, fmt.Errorf("MAX_CURRENCIES must be positive")
	}
	if cfg.Engine.IngressQueueSize <= 0 {
		return nil, fmt.Errorf("INGRESS_QUEUE_SIZE must be positive")
	}
	if !cfg.Engine.EnableTriangleArbitrage && !cfg.Engine.EnableCrossExchange {
		return nil, fmt.Errorf("at least one of ENABLE_TRIANGLE_ARBITRAGE, ENABLE_CROSS_EXCHANGE must be true")
	}

	return cfg, nil
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
