// Package assembler builds page-specific context snapshots that ground
// the model's answers in current CRM data.
package assembler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vantagecrm/guru/store"
)

// RecordLimit caps how many records one entity contributes to a
// snapshot, keeping prompt size predictable.
const RecordLimit = 20

// Snapshot is a page-keyed bag of domain records. Created fresh per
// request and never mutated after construction.
type Snapshot struct {
	Page        string                 `json:"page"`
	GeneratedAt time.Time              `json:"generated_at"`
	Data        map[string]interface{} `json:"data"`
}

// Page describes one logical page: its canned prompts and how to fetch
// its grounding data.
type Page struct {
	SuggestedQueries []string
	Fetch            func(ctx context.Context, a *Assembler, data map[string]interface{})
}

// Assembler resolves page names to context fetchers.
type Assembler struct {
	store  store.Store
	logger *zap.Logger
	pages  map[string]Page
	now    func() time.Time
}

// New creates an assembler with the built-in page registry.
func New(st store.Store, logger *zap.Logger) *Assembler {
	a := &Assembler{
		store:  st,
		logger: logger,
		pages:  map[string]Page{},
		now:    time.Now,
	}
	registerBuiltinPages(a)
	return a
}

// Register adds or replaces a page entry. Called once at startup.
func (a *Assembler) Register(name string, page Page) {
	a.pages[name] = page
}

// SuggestedQueries returns the canned prompts for a page. Unknown pages
// get the generic set.
func (a *Assembler) SuggestedQueries(page string) []string {
	if p, ok := a.pages[page]; ok {
		return p.SuggestedQueries
	}
	return a.pages[genericPage].SuggestedQueries
}

// Assemble builds a fresh snapshot for the page. Unknown pages fall
// through to the generic fetcher so the model always has some
// grounding. A failing sub-fetch drops its field and nothing else.
func (a *Assembler) Assemble(ctx context.Context, page, userID string) Snapshot {
	p, ok := a.pages[page]
	if !ok {
		a.logger.Debug("unknown page, using generic context", zap.String("page", page))
		p = a.pages[genericPage]
	}

	data := map[string]interface{}{}
	p.Fetch(ctx, a, data)

	return Snapshot{
		Page:        page,
		GeneratedAt: a.now().UTC(),
		Data:        data,
	}
}

// put runs one sub-fetch and stores its result. Failures are logged
// and the field is omitted; assembly never aborts as a whole.
func (a *Assembler) put(ctx context.Context, data map[string]interface{}, key string, fetch func(context.Context) (interface{}, error)) {
	v, err := fetch(ctx)
	if err != nil {
		a.logger.Warn("context sub-fetch failed",
			zap.String("field", key),
			zap.Error(err))
		return
	}
	data[key] = v
}
