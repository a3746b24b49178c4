package deps

import (
	"time"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/search"
	"github.com/webstash/webstash/internal/tags"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Lists  *lists.Store
	Tags   *tags.Store
	Annots *annots.Store
	Pages  *pages.Store
	Search *search.Engine
}
