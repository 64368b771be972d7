package timezone

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/leadmailer/internal/telemetry"
)

type fakeGeo struct {
	result GeoResult
	err    error
	calls  atomic.Int32
}

func (g *fakeGeo) Lookup(_ context.Context, _ string) (GeoResult, error) {
	g.calls.Add(1)
	return g.result, g.err
}

func TestResolve_PublicIPUsesGeo(t *testing.T) {
	geo := &fakeGeo{result: GeoResult{Zone: "Europe/Lisbon", CountryCode: "PT"}}
	r := NewResolver(Config{Geo: geo})

	assert.Equal(t, "Europe/Lisbon", r.Resolve(context.Background(), "8.8.8.8", "BR"))
	assert.Equal(t, int32(1), geo.calls.Load())
}

func TestResolve_CachesGeoResult(t *testing.T) {
	geo := &fakeGeo{result: GeoResult{Zone: "Europe/Lisbon"}}
	metrics := telemetry.NewMetrics(nil)
	r := NewResolver(Config{Geo: geo, Metrics: metrics})

	r.Resolve(context.Background(), "8.8.8.8", "")
	r.Resolve(context.Background(), "8.8.8.8", "")

	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeoLookups.WithLabelValues(sourceCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeoLookups.WithLabelValues(sourceGeo)))
}

func TestResolve_SkipsLookupForNonPublicIP(t *testing.T) {
	for _, ip := range []string{"", "127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "169.254.1.1", "not-an-ip"} {
		t.Run(ip, func(t *testing.T) {
			geo := &fakeGeo{result: GeoResult{Zone: "Asia/Tokyo"}}
			r := NewResolver(Config{Geo: geo})

			assert.Equal(t, "Europe/Madrid", r.Resolve(context.Background(), ip, "ES"))
			assert.Equal(t, int32(0), geo.calls.Load())
		})
	}
}

func TestResolve_GeoFailureFallsBackToCountry(t *testing.T) {
	geo := &fakeGeo{err: ErrLookupFailed}
	r := NewResolver(Config{Geo: geo})

	assert.Equal(t, "America/Mexico_City", r.Resolve(context.Background(), "8.8.8.8", "mx"))
}

func TestResolve_GeoCountryUsedWhenCallerHasNone(t *testing.T) {
	geo := &fakeGeo{result: GeoResult{CountryCode: "AR"}, err: errors.New("empty timezone")}
	r := NewResolver(Config{Geo: geo})

	assert.Equal(t, "America/Argentina/Buenos_Aires", r.Resolve(context.Background(), "8.8.8.8", ""))
}

func TestResolve_InvalidGeoZoneIgnored(t *testing.T) {
	geo := &fakeGeo{result: GeoResult{Zone: "Mars/Olympus"}}
	r := NewResolver(Config{Geo: geo})

	assert.Equal(t, "Asia/Tokyo", r.Resolve(context.Background(), "8.8.8.8", "JP"))
}

func TestResolve_DefaultZone(t *testing.T) {
	r := NewResolver(Config{})
	assert.Equal(t, DefaultZone, r.Resolve(context.Background(), "", "ZZ"))

	r = NewResolver(Config{DefaultZone: "Europe/Berlin"})
	assert.Equal(t, "Europe/Berlin", r.Resolve(context.Background(), "", ""))

	r = NewResolver(Config{DefaultZone: "Not/AZone"})
	assert.Equal(t, DefaultZone, r.Resolve(context.Background(), "", ""))
}

func TestCountryTableZonesAreValid(t *testing.T) {
	assert.GreaterOrEqual(t, len(countryZones), 20)
	for code, zone := range countryZones {
		_, err := time.LoadLocation(zone)
		assert.NoError(t, err, "country %s", code)
	}
}

// --- GeoClient ---

func TestGeoClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/200.1.2.3", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "timezone")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","countryCode":"BR","timezone":"America/Recife"}`))
	}))
	defer srv.Close()

	client := NewGeoClient(srv.URL+"/json", time.Second)
	result, err := client.Lookup(context.Background(), "200.1.2.3")

	require.NoError(t, err)
	assert.Equal(t, "America/Recife", result.Zone)
	assert.Equal(t, "BR", result.CountryCode)
}

func TestGeoClient_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	_, err := NewGeoClient(srv.URL+"/json/", time.Second).Lookup(context.Background(), "8.8.8.8")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Contains(t, err.Error(), "reserved range")
}

func TestGeoClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeoClient(srv.URL, time.Second).Lookup(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestGeoClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewGeoClient(srv.URL, 50*time.Millisecond).Lookup(context.Background(), "8.8.8.8")

	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolver_WithGeoClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/8.8.4.4") {
			_, _ = w.Write([]byte(`{"status":"success","countryCode":"US","timezone":"America/Chicago"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(Config{Geo: NewGeoClient(srv.URL, time.Second)})

	assert.Equal(t, "America/Chicago", r.Resolve(context.Background(), "8.8.4.4", "BR"))
	assert.Equal(t, "America/Sao_Paulo", r.Resolve(context.Background(), "1.1.1.1", "BR"))
}
