package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://localhost:7128/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.insecure_skip_verify", true)

	v.SetDefault("breaker.max_requests", 5)
	v.SetDefault("breaker.interval", 10*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.min_requests", 5)
	v.SetDefault("breaker.failure_ratio", 0.5)

	v.SetDefault("auth.store", StoreFile)
	v.SetDefault("auth.token_file", filepath.Join(Dir(), "auth"))
	v.SetDefault("auth.ttl", 24*time.Hour)
	v.SetDefault("auth.redis_addr", "localhost:6379")
	v.SetDefault("auth.redis_key", "auth")

	v.SetDefault("gateway.key", "")
	v.SetDefault("gateway.script_url", "https://checkout.razorpay.com/v1/checkout.js")
	v.SetDefault("gateway.listen_addr", "127.0.0.1:8787")
	v.SetDefault("gateway.store_name", "GymApp Store")
	v.SetDefault("gateway.theme_color", "#dc2626")
	v.SetDefault("gateway.prefill_email", "")

	v.SetDefault("reconcile.brokers", []string{})
	v.SetDefault("reconcile.topic", "checkout-reconciliation")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("currency", "INR")
}

const defaultFile = `# gymcart configuration
# Every key can be overridden with GYMCART_<SECTION>_<KEY>, e.g. GYMCART_API_BASE_URL.

api:
  base_url: https://localhost:7128/api
  timeout: 30s
  # the development API runs with a self-signed certificate
  insecure_skip_verify: true

# circuit breaker around API calls (only network errors and 5xx count)
breaker:
  max_requests: 5
  interval: 10s
  timeout: 30s
  min_requests: 5
  failure_ratio: 0.5

auth:
  store: file        # "file" or "redis"
  # token_file: ~/.gymcart/auth
  ttl: 24h
  redis_addr: localhost:6379
  redis_key: auth

gateway:
  key: ""            # payment gateway publishable key
  script_url: https://checkout.razorpay.com/v1/checkout.js
  listen_addr: 127.0.0.1:8787
  store_name: GymApp Store
  theme_color: "#dc2626"
  prefill_email: ""

# paid-but-unrecorded orders are published here for support; empty brokers = log only
reconcile:
  brokers: []
  topic: checkout-reconciliation

log:
  level: info
  format: text       # "text" or "json"

currency: INR
`

// WriteDefault writes the commented default configuration file, creating the
// parent directory. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if fileExists(path) {
		return os.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultFile), 0o600)
}
