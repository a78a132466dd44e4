package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/config"
	"github.com/mwsanalytics/posts-backend/internal/ratelimit"
)

type compiledRule struct {
	name    string
	pattern *regexp.Regexp
	limit   int
	window  time.Duration
}

// RateLimit returns middleware that applies the first rule whose pattern
// matches the request path. Paths without a rule and exempt clients pass
// through untouched.
func RateLimit(
	log logrus.FieldLogger,
	cfg config.RateLimitingConfig,
	limiter ratelimit.Limiter,
) func(http.Handler) http.Handler {
	rules := make([]compiledRule, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		rules[i] = compiledRule{
			name:    rule.Name,
			pattern: regexp.MustCompile(rule.PathPattern),
			limit:   rule.Limit,
			window:  rule.Window,
		}
	}

	exemptNets := parseExemptIPs(cfg.ExemptIPs)
	log = log.WithField("component", "ratelimit_middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			rule := findMatchingRule(r.URL.Path, rules)
			if rule == nil || isExempt(ip, exemptNets) {
				next.ServeHTTP(w, r)

				return
			}

			decision, err := limiter.Allow(r.Context(), ip, rule.name, rule.limit, rule.window)
			if err != nil {
				RateLimitErrorsTotal.WithLabelValues("redis_error").Inc()

				log.WithError(err).WithFields(logrus.Fields{
					"ip":   ip,
					"rule": rule.name,
				}).Error("Rate limit check failed")
			}

			if err != nil && !decision.Allowed {
				writeRateLimitError(w, http.StatusServiceUnavailable, "rate limiter unavailable", 0)

				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				RateLimitDeniedTotal.WithLabelValues(rule.name).Inc()

				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter <= 0 {
					retryAfter = int(rule.window.Seconds())
				}

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeRateLimitError(w, http.StatusTooManyRequests, "rate limit exceeded", retryAfter)

				log.WithFields(logrus.Fields{
					"ip":          ip,
					"path":        r.URL.Path,
					"rule":        rule.name,
					"retry_after": retryAfter,
				}).Warn("Rate limit exceeded")

				return
			}

			RateLimitAllowedTotal.WithLabelValues(rule.name).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

func parseExemptIPs(exemptIPs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(exemptIPs))

	for _, entry := range exemptIPs {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				continue
			}

			bits := 128
			if ip.To4() != nil {
				bits = 32
			}

			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})

			continue
		}

		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
		}
	}

	return nets
}

func isExempt(ip string, exemptNets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, network := range exemptNets {
		if network.Contains(parsed) {
			return true
		}
	}

	return false
}

func findMatchingRule(path string, rules []compiledRule) *compiledRule {
	for i := range rules {
		if rules[i].pattern.MatchString(path) {
			return &rules[i]
		}
	}

	return nil
}

func writeRateLimitError(w http.ResponseWriter, status int, message string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"error":  message,
		"code":   "RATE_LIMITED",
		"status": status,
	}

	if retryAfter > 0 {
		response["retry_after"] = retryAfter
	}

	_ = json.NewEncoder(w).Encode(response)
}
