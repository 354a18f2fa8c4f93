package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"moim/internal/core"
	"moim/internal/services"
)

func TestReportTime(t *testing.T) {
	base := core.DuesPolicy{Epoch: core.Month{Year: 2020, Month: 2}, Reference: core.ReferencePrevious}
	now := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	p, at, err := reportTime(base, "", now)
	if err != nil || !at.Equal(now) || p.Reference != core.ReferencePrevious {
		t.Fatalf("default = %+v %v %v", p, at, err)
	}

	p, at, err = reportTime(base, "2021-01", now)
	if err != nil {
		t.Fatalf("reportTime() = %v", err)
	}
	if got := p.ReferenceMonth(at).String(); got != "2021-01" {
		t.Fatalf("reference month = %s", got)
	}

	if _, _, err := reportTime(base, "2021-13", now); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func sampleReport() services.Report {
	return services.Report{
		ReferenceMonth: "2020-03",
		MonthsElapsed:  1,
		DuePerMember:   130000,
		Members: []services.ReconciliationRecord{
			{MemberID: "m1", Name: "김철수", AmountDue: 130000, AmountPaid: 100000, Balance: 30000, Status: services.StatusOwed},
		},
		Totals: services.RollUp{Members: 1, AmountDue: 130000, AmountPaid: 100000, Balance: 30000},
		Issues: []core.Issue{{Kind: core.IssueUnresolvedName, Table: "ledger", Row: 4, Detail: `no member named "박"`}},
	}
}

func TestWriteReport(t *testing.T) {
	var table bytes.Buffer
	if err := writeReport(&table, sampleReport(), "table"); err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, want := range []string{"2020-03", "김철수", "30,000", "확인 필요 1건", "ledger unresolved_name row 4"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, table.String())
		}
	}

	var js bytes.Buffer
	if err := writeReport(&js, sampleReport(), "json"); err != nil {
		t.Fatalf("json: %v", err)
	}
	var got services.Report
	if err := json.Unmarshal(js.Bytes(), &got); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if got.Totals.Balance != 30000 || len(got.Members) != 1 {
		t.Fatalf("decoded = %+v", got)
	}

	if err := writeReport(&js, sampleReport(), "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
