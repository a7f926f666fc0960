package routes

import (
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

// privileged guards endpoints that change many records or cost outbound
// requests: the IP allowlist, then the per-IP budget when one is set.
func privileged(d deps.Deps) []Middleware {
	mws := []Middleware{mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	if d.ImportRatePerMin > 0 {
		mws = append(mws, mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.ImportBurst,
			RefillPerIPPerMin: d.ImportRatePerMin,
			MaxEntries:        10_000,
			TrustProxy:        d.TrustProxy,
		}))
	}
	return mws
}
