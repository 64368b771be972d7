package timezone

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/patrickmn/go-cache"

	"github.com/shaiso/leadmailer/internal/telemetry"
)

// DefaultZone — зона, если ничего не удалось определить.
const DefaultZone = "America/Sao_Paulo"

const (
	defaultCacheTTL    = 6 * time.Hour
	cacheCleanupPeriod = 10 * time.Minute

	sourceCache   = "cache"
	sourceGeo     = "geo"
	sourceCountry = "country"
	sourceDefault = "default"
)

// Geo — внешний сервис геолокации по IP.
type Geo interface {
	Lookup(ctx context.Context, ip string) (GeoResult, error)
}

// Resolver определяет зону лида.
type Resolver struct {
	geo         Geo
	defaultZone string
	cache       *cache.Cache
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// Config — конфигурация Resolver.
type Config struct {
	Geo         Geo           // nil — только таблица стран
	DefaultZone string        // default: America/Sao_Paulo
	CacheTTL    time.Duration // default: 6h
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
}

// NewResolver создаёт Resolver.
func NewResolver(cfg Config) *Resolver {
	defaultZone := cfg.DefaultZone
	if _, err := time.LoadLocation(defaultZone); defaultZone == "" || err != nil {
		defaultZone = DefaultZone
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}

	return &Resolver{
		geo:         cfg.Geo,
		defaultZone: defaultZone,
		cache:       cache.New(ttl, cacheCleanupPeriod),
		logger:      logger,
		metrics:     metrics,
	}
}

// Resolve возвращает IANA зону по IP и коду страны. Оба аргумента опциональны.
func (r *Resolver) Resolve(ctx context.Context, ip, countryCode string) string {
	ip = strings.TrimSpace(ip)

	if r.geo != nil && isPublicIP(ip) {
		if zone, ok := r.cache.Get(ip); ok {
			r.metrics.GeoLookups.WithLabelValues(sourceCache).Inc()
			return zone.(string)
		}

		result, err := r.geo.Lookup(ctx, ip)
		switch {
		case err != nil:
			r.logger.Debug("geo lookup failed, falling back to country", "ip", ip, "error", err)
		case !validZone(result.Zone):
			r.logger.Debug("geo lookup returned unknown zone", "ip", ip, "zone", result.Zone)
		default:
			r.cache.SetDefault(ip, result.Zone)
			r.metrics.GeoLookups.WithLabelValues(sourceGeo).Inc()
			return result.Zone
		}

		if countryCode == "" {
			countryCode = result.CountryCode
		}
	}

	if zone, ok := ZoneForCountry(countryCode); ok {
		r.metrics.GeoLookups.WithLabelValues(sourceCountry).Inc()
		return zone
	}

	r.metrics.GeoLookups.WithLabelValues(sourceDefault).Inc()
	return r.defaultZone
}

// isPublicIP — IP разобран и не относится к loopback / private / link-local.
func isPublicIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast())
}

func validZone(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := time.LoadLocation(zone)
	return err == nil
}
