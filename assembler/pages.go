package assembler

import (
	"context"

	"github.com/vantagecrm/guru/domain"
)

// genericPage is the fallback entry for unmapped pages.
const genericPage = "generic"

func registerBuiltinPages(a *Assembler) {
	a.Register("dashboard", Page{
		SuggestedQueries: []string{
			"Give me a summary of my day",
			"What should I focus on first?",
			"Any deals at risk this week?",
		},
		Fetch: func(ctx context.Context, a *Assembler, data map[string]interface{}) {
			a.put(ctx, data, "recent_deals", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentDeals(ctx, RecordLimit)
			})
			a.put(ctx, data, "open_tasks", func(ctx context.Context) (interface{}, error) {
				return a.store.OpenTasks(ctx, RecordLimit)
			})
			a.put(ctx, data, "recent_contacts", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentContacts(ctx, RecordLimit)
			})
		},
	})

	a.Register("deals", Page{
		SuggestedQueries: []string{
			"Summarize my pipeline",
			"Which deals moved stages recently?",
			"What is the total value in negotiation?",
		},
		Fetch: func(ctx context.Context, a *Assembler, data map[string]interface{}) {
			a.put(ctx, data, "recent_deals", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentDeals(ctx, RecordLimit)
			})
			a.put(ctx, data, "stage_history", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentStageTransitions(ctx, RecordLimit)
			})
		},
	})

	a.Register("tasks", Page{
		SuggestedQueries: []string{
			"What is overdue right now?",
			"Plan my tasks for today",
			"Which tasks relate to open deals?",
		},
		Fetch: func(ctx context.Context, a *Assembler, data map[string]interface{}) {
			a.put(ctx, data, "open_tasks", func(ctx context.Context) (interface{}, error) {
				return a.store.OpenTasks(ctx, RecordLimit)
			})
			a.put(ctx, data, "overdue_tasks", func(ctx context.Context) (interface{}, error) {
				tasks, err := a.store.OpenTasks(ctx, RecordLimit)
				if err != nil {
					return nil, err
				}
				now := a.now().UTC()
				overdue := []domain.Task{}
				for _, t := range tasks {
					if t.Overdue(now) {
						overdue = append(overdue, t)
					}
				}
				return overdue, nil
			})
		},
	})

	a.Register("contacts", Page{
		SuggestedQueries: []string{
			"Who did we add recently?",
			"Which contacts have open deals?",
			"Draft a follow-up for my newest contact",
		},
		Fetch: func(ctx context.Context, a *Assembler, data map[string]interface{}) {
			a.put(ctx, data, "recent_contacts", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentContacts(ctx, RecordLimit)
			})
			a.put(ctx, data, "recent_deals", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentDeals(ctx, RecordLimit)
			})
		},
	})

	a.Register(genericPage, Page{
		SuggestedQueries: []string{
			"Summarize my pipeline",
			"What is overdue right now?",
		},
		Fetch: func(ctx context.Context, a *Assembler, data map[string]interface{}) {
			a.put(ctx, data, "recent_deals", func(ctx context.Context) (interface{}, error) {
				return a.store.RecentDeals(ctx, RecordLimit)
			})
			a.put(ctx, data, "open_tasks", func(ctx context.Context) (interface{}, error) {
				return a.store.OpenTasks(ctx, RecordLimit)
			})
		},
	})
}
