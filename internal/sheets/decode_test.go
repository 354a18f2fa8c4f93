package sheets

import (
	"errors"
	"testing"

	"moim/internal/core"
	"moim/internal/schema"
)

func mustSchema(t *testing.T, version string) *schema.Schema {
	t.Helper()
	s, err := schema.Builtin(version)
	if err != nil {
		t.Fatalf("Builtin(%q): %v", version, err)
	}
	return s
}

func TestDecode_V1(t *testing.T) {
	tables := Tables{
		Members: [][]string{
			{"이름", "직책", "가입일", "비밀번호"},
			{"김철수", "회장", "2020-02-01", "1234"},
			{"", "", "", ""},
			{" 이영희 ", "총무", "", "abcd"},
		},
		Ledger: [][]string{
			{"날짜", "구분", "분류", "이름", "금액"},
			{"2024-01-05", "입금", "회비", "김철수", "30,000원"},
			{"", "", "", "", ""},
			{"2024-01-06", "지출", "조의금", "이영희", "1000000"},
			{"2024-01-07", "환불", "", "", "5000"},
		},
		Assets: [][]string{
			{"항목", "금액", "은행"},
			{"회비통장", "1,230,000", "국민"},
			{"", "999", ""},
		},
		Rules: "  제1조 회비는 매월 납부한다.  ",
	}

	snap, err := Decode(mustSchema(t, "v1"), tables)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(snap.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(snap.Members))
	}
	if m := snap.Members[1]; m.Name != "이영희" || m.ID != "이영희" || m.Credential != "abcd" {
		t.Fatalf("member without id column should key by name: %+v", m)
	}
	if len(snap.Ledger) != 3 {
		t.Fatalf("ledger = %d, want 3", len(snap.Ledger))
	}
	first := snap.Ledger[0]
	if first.Row != 1 || first.Direction != core.Deposit || first.Amount != 30000 || first.Counterparty != "김철수" {
		t.Fatalf("first row = %+v", first)
	}
	if first.OccurredAt.IsZero() {
		t.Fatal("date not parsed")
	}
	if snap.Ledger[1].Row != 3 || snap.Ledger[1].Direction != core.Withdrawal {
		t.Fatalf("second row = %+v", snap.Ledger[1])
	}
	if snap.Ledger[2].Direction != core.DirectionUnknown {
		t.Fatalf("unknown label should decode to DirectionUnknown, got %v", snap.Ledger[2].Direction)
	}
	if len(snap.Assets) != 1 || snap.Assets[0].Valuation != 1230000 {
		t.Fatalf("assets = %+v", snap.Assets)
	}
	if snap.Rules != "제1조 회비는 매월 납부한다." {
		t.Fatalf("rules = %q", snap.Rules)
	}
}

func TestDecode_V2UsesIDColumn(t *testing.T) {
	tables := Tables{
		Members: [][]string{
			{"회원번호", "이름", "직책", "가입일", "아이디"},
			{"M-001", "김철수", "회원", "", "kim"},
		},
		Ledger: [][]string{
			{"거래일시", "입출금", "항목", "회원명", "금액"},
			{"2024-01-05", "출금", "적금이체", "", "500000"},
		},
		Assets: [][]string{{"자산명", "평가금액", "금융기관"}},
	}
	snap, err := Decode(mustSchema(t, "v2"), tables)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Members[0].ID != "M-001" {
		t.Fatalf("id = %q", snap.Members[0].ID)
	}
	if snap.Ledger[0].Direction != core.Withdrawal || snap.Ledger[0].Category != "적금이체" {
		t.Fatalf("ledger row = %+v", snap.Ledger[0])
	}
	if len(snap.Assets) != 0 {
		t.Fatalf("header-only assets should decode empty, got %d", len(snap.Assets))
	}
}

func TestDecode_SchemaMismatch(t *testing.T) {
	tables := Tables{
		Ledger: [][]string{{"거래일시", "입출금", "항목", "회원명", "금액"}},
	}
	_, err := Decode(mustSchema(t, "v1"), tables)
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestDecode_EmptyTables(t *testing.T) {
	snap, err := Decode(mustSchema(t, "v1"), Tables{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(snap.Members) != 0 || len(snap.Ledger) != 0 || len(snap.Assets) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestRulesText(t *testing.T) {
	got := RulesText([][]string{{"제1조", "목적"}, {""}, {"  제2조 "}})
	if got != "제1조 목적\n제2조" {
		t.Fatalf("RulesText = %q", got)
	}
}
