package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Gunvolt24/datapipe/internal/domain"
	"github.com/Gunvolt24/datapipe/internal/ports"
)

// DefaultPrefix — префикс переменных окружения сервиса.
const DefaultPrefix = "DATAPIPE"

// Бэкенды очереди.
const (
	BackendKafka  = "kafka"
	BackendRedis  = "redis"
	BackendIronMQ = "ironmq"
)

// Режимы подтверждения: reserve — сообщения удаляются при выборке,
// commit — подтверждаются только после успешной загрузки.
const (
	AckModeReserve = "reserve"
	AckModeCommit  = "commit"
)

type HTTP struct {
	Addr              string        `default:":8080" envconfig:"ADDR"`
	GinMode           string        `default:"debug" envconfig:"GIN_MODE"`
	ReadTimeout       time.Duration `default:"10s"   envconfig:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `default:"10s"   envconfig:"WRITE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `default:"5s"    envconfig:"READ_HEADER_TIMEOUT"`
	IdleTimeout       time.Duration `default:"60s"   envconfig:"IDLE_TIMEOUT"`
	HandlerTimeout    time.Duration `default:"3s"    envconfig:"HANDLER_TIMEOUT"`
	GracefulTimeout   time.Duration `default:"5s"    envconfig:"GRACEFUL_TIMEOUT"`
	InputMaxLen       int           `default:"2048"  envconfig:"INPUT_MAX_LEN"`
}

type Tracing struct {
	Enabled     bool    `default:"false"       envconfig:"OTEL_ENABLED"`
	ServiceName string  `default:"datapipe"    envconfig:"OTEL_SERVICE_NAME"`
	Endpoint    string  `default:"jaeger:4318" envconfig:"OTEL_ENDPOINT"`
	SampleRatio float64 `default:"1"           envconfig:"OTEL_SAMPLE_RATIO"`
}

type Postgres struct {
	Host           string        `default:"localhost" envconfig:"HOST"`
	Port           int           `default:"5432"      envconfig:"PORT"`
	Name           string        `default:"datapipe"  envconfig:"NAME"`
	User           string        `envconfig:"USER"`
	Password       string        `envconfig:"PASSWORD"`
	SSLMode        string        `default:"disable"   envconfig:"SSL_MODE"`
	ConnectTimeout time.Duration `default:"10s"       envconfig:"CONNECT_TIMEOUT"`
	AutoMigrate    bool          `default:"true"      envconfig:"AUTO_MIGRATE"`
	MaxConns       int32         `default:"2"         envconfig:"MAX_CONNS"` // пул для /readyz
}

type Queue struct {
	Backend     string   `default:"kafka"                        envconfig:"BACKEND"`
	FetchMsgNum int      `default:"100"                          envconfig:"FETCH_MSG_NUM"`
	AckMode     string   `default:"reserve"                      envconfig:"ACK_MODE"`
	Events      []string `default:"crash_report,purchase,install" envconfig:"EVENTS"`
}

type Kafka struct {
	Brokers      []string      `default:"kafka:9092"      envconfig:"BROKERS"`
	TopicPrefix  string        `envconfig:"TOPIC_PREFIX"`
	GroupID      string        `default:"datapipe-loader" envconfig:"GROUP_ID"`
	StartOffset  string        `default:"first"           envconfig:"START_OFFSET"`
	FetchWait    time.Duration `default:"500ms"           envconfig:"FETCH_WAIT"`
	RetryInitial time.Duration `default:"100ms"           envconfig:"RETRY_INITIAL"`
	RetryMax     time.Duration `default:"2s"              envconfig:"RETRY_MAX"`
}

type Redis struct {
	Addr      string `default:"redis:6379" envconfig:"ADDR"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `default:"0"          envconfig:"DB"`
	KeyPrefix string `default:"datapipe:"  envconfig:"KEY_PREFIX"`
}

type IronMQ struct {
	Host      string        `envconfig:"HOST"`
	ProjectID string        `envconfig:"PROJECT_ID"`
	Token     string        `envconfig:"TOKEN"`
	RetryMax  int           `default:"3"   envconfig:"RETRY_MAX"`
	Timeout   time.Duration `default:"10s" envconfig:"TIMEOUT"`
}

// Loader — параметры загрузки таблиц (секция LOAD_*).
type Loader struct {
	Interval     time.Duration `default:"300s"   envconfig:"INTERVAL"`
	MinInterval  time.Duration `default:"10s"    envconfig:"MIN_INTERVAL"`
	ChunkSize    int           `default:"524288" envconfig:"CHUNK_SIZE"`
	Workers      int           `default:"3"      envconfig:"WORKERS"`
	CycleTimeout time.Duration `default:"0"      envconfig:"CYCLE_TIMEOUT"`
	RestartDelay time.Duration `default:"1s"     envconfig:"RESTART_DELAY"`
}

type Logger struct {
	IsProd bool `default:"false" envconfig:"IS_PROD"`
}

type Config struct {
	HTTP     HTTP
	Tracing  Tracing
	Postgres Postgres
	Queue    Queue
	Kafka    Kafka
	Redis    Redis
	IronMQ   IronMQ
	Load     Loader
	Logger   Logger
}

// Load — конфигурация из окружения с префиксом DATAPIPE.
func Load() (Config, error) {
	return LoadWithPrefix(DefaultPrefix)
}

// LoadWithPrefix — конфигурация из окружения с заданным префиксом (удобно в тестах).
func LoadWithPrefix(prefix string) (Config, error) {
	var c Config

	if err := envconfig.Process(prefix, &c); err != nil {
		return Config{}, err
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) normalize() {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	c.Queue.AckMode = strings.ToLower(strings.TrimSpace(c.Queue.AckMode))
	events := c.Queue.Events[:0]
	for _, e := range c.Queue.Events {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}
	c.Queue.Events = events
}

// Validate — проверка значений, которые envconfig пропускает.
func (c *Config) Validate() error {
	var errs []error

	switch c.Queue.Backend {
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka: brokers are required"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis: addr is required"))
		}
	case BackendIronMQ:
		if c.IronMQ.Host == "" || c.IronMQ.ProjectID == "" {
			errs = append(errs, errors.New("ironmq: host and project id are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue: unknown backend %q", c.Queue.Backend))
	}

	if c.Queue.AckMode != AckModeReserve && c.Queue.AckMode != AckModeCommit {
		errs = append(errs, fmt.Errorf("queue: unknown ack mode %q", c.Queue.AckMode))
	}
	if c.Queue.FetchMsgNum <= 0 {
		errs = append(errs, fmt.Errorf("queue: fetch_msg_num must be positive, got %d", c.Queue.FetchMsgNum))
	}
	if len(c.Queue.Events) == 0 {
		errs = append(errs, errors.New("queue: no events configured"))
	}
	for _, e := range c.Queue.Events {
		if _, ok := domain.KindByName(e); !ok {
			errs = append(errs, fmt.Errorf("queue: unsupported event %q", e))
		}
	}

	if c.Load.Interval <= 0 || c.Load.MinInterval <= 0 {
		errs = append(errs, fmt.Errorf("load: interval and min_interval must be positive, got %s/%s",
			c.Load.Interval, c.Load.MinInterval))
	}
	if c.Load.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("load: chunk_size must be positive, got %d", c.Load.ChunkSize))
	}
	if c.Load.Workers <= 0 {
		errs = append(errs, fmt.Errorf("load: workers must be positive, got %d", c.Load.Workers))
	}
	if c.HTTP.InputMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("http: input_max_len must be positive, got %d", c.HTTP.InputMaxLen))
	}

	return errors.Join(errs...)
}

// DBParams — параметры подключения загрузчика.
func (c *Config) DBParams() ports.DBParams {
	return ports.DBParams{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		Name:     c.Postgres.Name,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		SSLMode:  c.Postgres.SSLMode,
	}
}
