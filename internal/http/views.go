package http

import (
	"errors"
	"fmt"
	"time"

	"moim/internal/core"
	"moim/internal/services"
)

// View is one screen of the dashboard. Navigation is carried by the request
// path; the server keeps no menu state between requests.
type View string

const (
	ViewHome      View = "home"
	ViewMembers   View = "members"
	ViewAggregate View = "aggregate"
	ViewRules     View = "rules"
)

// Views lists every view in menu order.
var Views = []View{ViewHome, ViewMembers, ViewAggregate, ViewRules}

var ErrUnknownView = errors.New("unknown view")

// ParseView maps a path segment onto a View.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownView, s)
}

type (
	homeView struct {
		View           View                   `json:"view"`
		Views          []View                 `json:"views"`
		ReferenceMonth string                 `json:"reference_month"`
		MonthsElapsed  int                    `json:"months_elapsed"`
		DuePerMember   int64                  `json:"due_per_member"`
		Totals         services.RollUp        `json:"totals"`
		Balance        services.BalanceReview `json:"balance"`
		IssueCount     int                    `json:"issue_count"`
		Source         string                 `json:"source,omitempty"`
		FetchedAt      time.Time              `json:"fetched_at"`
	}

	membersView struct {
		View           View                            `json:"view"`
		ReferenceMonth string                          `json:"reference_month"`
		DuePerMember   int64                           `json:"due_per_member"`
		Query          string                          `json:"query,omitempty"`
		Members        []services.ReconciliationRecord `json:"members"`
		Totals         services.RollUp                 `json:"totals"`
	}

	aggregateView struct {
		View           View                    `json:"view"`
		ReferenceMonth string                  `json:"reference_month"`
		Totals         services.RollUp         `json:"totals"`
		Balance        services.BalanceReview  `json:"balance"`
		Interest       services.InterestReport `json:"interest"`
		Issues         []core.Issue            `json:"issues"`
	}

	rulesView struct {
		View View   `json:"view"`
		Text string `json:"text"`
		HTML string `json:"html"`
	}

	memberProfile struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Role     string `json:"role,omitempty"`
		JoinedOn string `json:"joined_on,omitempty"`
	}

	meView struct {
		ReferenceMonth string                         `json:"reference_month"`
		Member         memberProfile                  `json:"member"`
		Record         *services.ReconciliationRecord `json:"record"`
	}
)

// render builds the response body for v from one loaded state.
func render(v View, st *state, query string) any {
	rep := st.report
	switch v {
	case ViewMembers:
		return membersView{
			View:           v,
			ReferenceMonth: rep.ReferenceMonth,
			DuePerMember:   rep.DuePerMember,
			Query:          query,
			Members:        rep.FilterMembers(query),
			Totals:         rep.Totals,
		}
	case ViewAggregate:
		return aggregateView{
			View:           v,
			ReferenceMonth: rep.ReferenceMonth,
			Totals:         rep.Totals,
			Balance:        rep.Balance,
			Interest:       rep.Interest,
			Issues:         rep.Issues,
		}
	case ViewRules:
		return rulesView{View: v, Text: st.rules, HTML: st.rulesHTML}
	default:
		return homeView{
			View:           ViewHome,
			Views:          Views,
			ReferenceMonth: rep.ReferenceMonth,
			MonthsElapsed:  rep.MonthsElapsed,
			DuePerMember:   rep.DuePerMember,
			Totals:         rep.Totals,
			Balance:        rep.Balance,
			IssueCount:     len(rep.Issues),
			Source:         rep.Source,
			FetchedAt:      rep.FetchedAt,
		}
	}
}

func renderMe(st *state, m core.Member) meView {
	out := meView{
		ReferenceMonth: st.report.ReferenceMonth,
		Member: memberProfile{
			ID:       m.Key(),
			Name:     m.Name,
			Role:     m.Role,
			JoinedOn: m.JoinedOn,
		},
	}
	if rec, ok := st.report.Record(m.Key()); ok {
		out.Record = &rec
	}
	return out
}
