package config

import (
	"flag"
	"os"
)

// Options holds the process configuration. Values come from flags and
// are overridden by environment variables, so containerized deployments
// can configure everything through the environment alone. Consumers
// receive individual getters as func() string, never the whole struct.
type Options struct {
	flagRunAddr        string
	flagStorageBackend string
	flagDatabaseURI    string
	flagMongoURI       string
	flagSQLitePath     string
	flagAdminPassword  string
	flagFrontendURL    string
	flagKafkaBrokers   string
	flagLogLevel       string
}

func NewOptions() *Options {
	return &Options{}
}

// ParseFlags registers and parses command line flags, then applies
// environment overrides.
func (o *Options) ParseFlags() {
	flag.StringVar(&o.flagRunAddr, "a", ":3001", "address and port to run server")
	flag.StringVar(&o.flagStorageBackend, "b", "sqlite", "storage backend: sqlite, postgres or mongo")
	flag.StringVar(&o.flagDatabaseURI, "d", "", "postgres connection DSN")
	flag.StringVar(&o.flagMongoURI, "m", "", "mongodb connection URI")
	flag.StringVar(&o.flagSQLitePath, "s", "guestbook.db", "path to the sqlite database file")
	flag.StringVar(&o.flagFrontendURL, "f", "*", "allowed frontend origin for CORS")
	flag.StringVar(&o.flagKafkaBrokers, "k", "", "comma-separated kafka brokers, empty disables publishing")
	flag.StringVar(&o.flagLogLevel, "l", "info", "log level")

	flag.Parse()

	if v := os.Getenv("RUN_ADDRESS"); v != "" {
		o.flagRunAddr = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		o.flagStorageBackend = v
	}
	if v := os.Getenv("DATABASE_URI"); v != "" {
		o.flagDatabaseURI = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		o.flagMongoURI = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		o.flagSQLitePath = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		o.flagFrontendURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		o.flagKafkaBrokers = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.flagLogLevel = v
	}

	// The admin secret is intentionally env-only so it never shows up
	// in process listings.
	o.flagAdminPassword = os.Getenv("ADMIN_PASSWORD")
}

func (o *Options) RunAddr() string {
	return o.flagRunAddr
}

func (o *Options) StorageBackend() string {
	return o.flagStorageBackend
}

func (o *Options) DatabaseURI() string {
	return o.flagDatabaseURI
}

func (o *Options) MongoURI() string {
	return o.flagMongoURI
}

func (o *Options) SQLitePath() string {
	return o.flagSQLitePath
}

func (o *Options) AdminPassword() string {
	return o.flagAdminPassword
}

func (o *Options) FrontendURL() string {
	return o.flagFrontendURL
}

func (o *Options) KafkaBrokers() string {
	return o.flagKafkaBrokers
}

func (o *Options) LogLevel() string {
	return o.flagLogLevel
}
