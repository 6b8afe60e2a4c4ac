package utils

// logger.go - структурированное логирование поверх zap.
//
// InitLogger строит *Logger по LogConfig: уровень, формат (json/text),
// вывод (stdout по умолчанию, файл при Output, fallback на stderr при
// ошибке открытия файла - логирование никогда не должно паниковать на
// старте из-за плохого пути).

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig описывает желаемую конфигурацию логгера.
type LogConfig struct {
	Level       string // debug|info|warn|warning|error|fatal
	Format      string // "json" (по умолчанию) | "text"/"console"
	Development bool
	Output      string // путь к файлу; пусто = stdout
}

// Logger оборачивает *zap.Logger и кэширует SugaredLogger.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger создаёт новый Logger по конфигурации.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "text") || strings.EqualFold(cfg.Format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sink := zapcore.AddSync(os.Stdout)
	if cfg.Output != "" {
		if cfg.Output == "/dev/null" {
			sink = zapcore.AddSync(discardWriter{})
		} else if f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			sink = zapcore.AddSync(f)
		} else {
			sink = zapcore.AddSync(os.Stderr)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	var opts []zap.Option
	opts = append(opts, zap.AddCaller())
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// parseLevel разбирает строковое имя уровня, по умолчанию InfoLevel.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// With возвращает новый Logger с добавленными полями.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

func (l *Logger) WithComponent(name string) *Logger   { return l.With(Component(name)) }
func (l *Logger) WithVenue(venue string) *Logger      { return l.With(Venue(venue)) }
func (l *Logger) WithSymbol(symbol string) *Logger    { return l.With(Symbol(symbol)) }
func (l *Logger) WithOpportunity(id string) *Logger   { return l.With(OpportunityID(id)) }

// Sugar возвращает кэшированный SugaredLogger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

// GetGlobalLogger лениво инициализирует и возвращает глобальный логгер.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger инициализирует глобальный логгер по конфигурации и
// устанавливает его как текущий.
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger заменяет глобальный логгер (используется тестами).
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L - короткий алиас для GetGlobalLogger.
func L() *Logger { return GetGlobalLogger() }

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetGlobalLogger().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetGlobalLogger().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(format, args...) }

// ============================================================
// Конструкторы полей для предметной области
// ============================================================

func Venue(v string) zap.Field         { return zap.String("venue", v) }
func Symbol(s string) zap.Field        { return zap.String("symbol", s) }
func NodeID(id int) zap.Field          { return zap.Int("node_id", id) }
func OpportunityID(id string) zap.Field { return zap.String("opportunity_id", id) }
func Price(p float64) zap.Field        { return zap.Float64("price", p) }
func Volume(v float64) zap.Field       { return zap.Float64("volume", v) }
func Spread(s float64) zap.Field       { return zap.Float64("spread", s) }
func ProfitPct(p float64) zap.Field    { return zap.Float64("profit_pct", p) }
func Direction(d string) zap.Field     { return zap.String("direction", d) }
func State(s string) zap.Field         { return zap.String("state", s) }
func Latency(ms float64) zap.Field     { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field    { return zap.String("request_id", id) }
func Sequence(seq uint64) zap.Field    { return zap.Uint64("sequence", seq) }
func Component(name string) zap.Field  { return zap.String("component", name) }

// Переэкспорт базовых конструкторов zap, чтобы вызывающий код не
// импортировал zap напрямую.
func String(key, val string) zap.Field            { return zap.String(key, val) }
func Int(key string, val int) zap.Field            { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field        { return zap.Int64(key, val) }
func Float64(key string, val float64) zap.Field    { return zap.Float64(key, val) }
func Bool(key string, val bool) zap.Field          { return zap.Bool(key, val) }
func Err(err error) zap.Field                      { return zap.Error(err) }
func Any(key string, val interface{}) zap.Field    { return zap.Any(key, val) }

// fieldsToInterface разворачивает поля zap в плоский слайс key, value,
// key, value... для передачи в SugaredLogger.
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		result = append(result, f.Key, enc.Fields[f.Key])
	}
	return result
}
