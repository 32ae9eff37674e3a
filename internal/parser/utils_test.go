package parser

import "testing"

func TestToFloat_BestEffort(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"  ", 0, false},
		{"abc", 0, false},
		{"=SUM(J5:J40)", 0, false},
		{"1,234.5", 1234.5, true},
		{" -3 ", -3, true},
		{12.0, 12, true},
		{7, 7, true},
	}
	for _, tc := range cases {
		got, ok := ToFloat(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("ToFloat(%#v)=(%v,%v), want (%v,%v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	if got := NormalizeColumnName(" 外仓 出库\n总量 "); got != "外仓出库总量" {
		t.Fatalf("NormalizeColumnName=%q", got)
	}
	if got := NormalizeColumnName("本期收入（入库）"); got != "本期收入(入库)" {
		t.Fatalf("NormalizeColumnName full-width=%q", got)
	}
}

func TestResolveColumn_NameThenLetter(t *testing.T) {
	t.Parallel()

	headers := HeaderIndex([]string{"", "名称", "编号", "外应存"})

	if col, ok := ResolveColumn(headers, "外应存"); !ok || col != 4 {
		t.Fatalf("ResolveColumn(外应存)=(%d,%v), want (4,true)", col, ok)
	}
	if col, ok := ResolveColumn(headers, "J"); !ok || col != 10 {
		t.Fatalf("ResolveColumn(J)=(%d,%v), want (10,true)", col, ok)
	}
	if _, ok := ResolveColumn(headers, "排产"); ok {
		t.Fatalf("ResolveColumn(排产) should miss")
	}
	if _, ok := ResolveColumn(headers, ""); ok {
		t.Fatalf("ResolveColumn(empty) should miss")
	}
}

func TestHeaderIndex_FirstDuplicateWins(t *testing.T) {
	t.Parallel()

	idx := HeaderIndex([]string{"编号", "数量", "编号"})
	if idx["编号"] != 1 {
		t.Fatalf("编号=%d, want 1", idx["编号"])
	}
	if ColumnLetter(19) != "S" {
		t.Fatalf("ColumnLetter(19)=%q, want S", ColumnLetter(19))
	}
}
