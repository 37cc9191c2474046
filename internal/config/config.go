package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"
)

// Config holds all runtime configuration values.  It is built once by Load
// in main and passed down by value; nothing reads the environment after
// startup.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	DBAutoMigrate  bool          // apply schema DDL at startup
	SeedDemoData   bool          // create demo accounts and products at startup
	JWTSecret      string        // secret used to sign JWTs
	AccessTTL      time.Duration // access token time-to-live
	BcryptCost     int           // bcrypt cost for password hashing
	PaymentKeyHex  string        // 32-byte hex key sealing card numbers and CVVs
	CORSOrigins    []string      // origins allowed by the CORS middleware
	RabbitURL      string        // AMQP URL; empty disables event publishing
	EventsExchange string        // topic exchange for domain events
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           envStr("APP_PORT", "8000"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", true),
		SeedDemoData:   envBool("SEED_DEMO_DATA", false),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTL:      time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 30)) * time.Minute,
		BcryptCost:     envInt("BCRYPT_COST", 12),
		PaymentKeyHex:  os.Getenv("PAYMENT_ENC_KEY"),
		CORSOrigins:    splitList(envStr("CORS_ORIGINS", "http://localhost:3000")),
		RabbitURL:      rabbitURL(),
		EventsExchange: envStr("EVENTS_EXCHANGE", "storefront.events"),
	}
}

// rabbitURL honours both RABBITMQ_URL and AMQP_URL.  Unlike the publisher
// defaults elsewhere, an unset URL means "publishing disabled".
func rabbitURL() string {
	if u := os.Getenv("RABBITMQ_URL"); u != "" {
		return u
	}
	return os.Getenv("AMQP_URL")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
