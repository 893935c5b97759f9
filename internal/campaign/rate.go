package campaign

import (
	"math/rand"
	"strings"
	"time"

	"github.com/codedeck/mailer/internal/config"
)

// NextDelay returns the inter-send delay: the configured base interval plus
// a uniformly random jitter in [JitterMin, JitterMax]. The jitter keeps the
// send cadence from looking machine-generated.
func NextDelay(cfg config.RateConfig, rng *rand.Rand) time.Duration {
	jitter := cfg.JitterMin
	if span := cfg.JitterMax - cfg.JitterMin; span > 0 {
		jitter += time.Duration(rng.Float64() * float64(span))
	}
	return cfg.BaseInterval + jitter
}

// IsQuotaError reports whether a send failure looks like a provider
// quota/rate-limit condition. This is a substring heuristic on the provider
// error text ("429" or "quota", case-insensitive); it lives here so the
// driver loop never inspects error strings itself and the check can later
// be replaced by structured error inspection.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
