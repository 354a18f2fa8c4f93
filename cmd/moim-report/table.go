package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"moim/internal/core"
	"moim/internal/services"
)

func writeTable(w io.Writer, rep services.Report) error {
	fmt.Fprintf(w, "기준월 %s  경과 %d개월  1인 납부액 %s\n\n",
		rep.ReferenceMonth, rep.MonthsElapsed, core.FormatWon(rep.DuePerMember))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "이름\t납부해야할금액\t납부한금액\t잔액\t상태\t조의금\t횟수\t조화\t")
	for _, rec := range rep.Members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			rec.Name,
			core.FormatWon(rec.AmountDue),
			core.FormatWon(rec.AmountPaid),
			core.FormatWon(rec.Balance),
			rec.Status,
			core.FormatWon(rec.CondolenceTotal),
			rec.CondolenceCount,
			core.FormatWon(rec.WreathTotal))
	}
	t := rep.Totals
	fmt.Fprintf(tw, "합계 (%d명)\t%s\t%s\t%s\t\t%s\t%d\t%s\t\n",
		t.Members,
		core.FormatWon(t.AmountDue),
		core.FormatWon(t.AmountPaid),
		core.FormatWon(t.Balance),
		core.FormatWon(t.CondolenceTotal),
		t.CondolenceCount,
		core.FormatWon(t.WreathTotal))
	if err := tw.Flush(); err != nil {
		return err
	}

	b := rep.Balance
	fmt.Fprintf(w, "\n회비통장 예상 %s  보고 %s  차이 %s\n",
		core.FormatWon(b.Expected), core.FormatWon(b.Reported), core.FormatWon(b.LedgerMinusAsset))
	in := rep.Interest
	fmt.Fprintf(w, "적금 원금 %s  평가액 %s  이자 %s\n",
		core.FormatWon(in.PrincipalContributed), core.FormatWon(in.CurrentValuation), core.FormatWon(in.Interest))

	if len(rep.Issues) > 0 {
		fmt.Fprintf(w, "\n확인 필요 %d건\n", len(rep.Issues))
		for _, is := range rep.Issues {
			fmt.Fprintf(w, "  - %s\n", is)
		}
	}
	return nil
}
