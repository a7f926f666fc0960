package deps

import (
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/readinglist"
	"github.com/MrSnakeDoc/stash/internal/store"
)

// MaintenanceTrigger queues maintenance jobs. Each method reports false
// when a run of that job is already queued.
type MaintenanceTrigger interface {
	TriggerLinks() bool
	TriggerFavicons() bool
}

// ReloadTrigger queues a reload of the Homepage bookmarks file.
type ReloadTrigger interface {
	TriggerReload() bool
}

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS     []string         // IPs allowed to reach import and maintenance endpoints
	TrustProxy       bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	ImportRatePerMin int              // per-IP import refill rate, 0 disables the limit
	ImportBurst      int              // per-IP import burst
	Store            store.Store
	ReadingList      *readinglist.List
	Maintenance      MaintenanceTrigger // nil disables the maintenance endpoints
	HomepageReload   ReloadTrigger      // nil if no bookmarks file is configured
}

// Now returns d.TimeNow(), falling back to time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
