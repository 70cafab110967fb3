package changelog

import (
	"testing"
	"time"

	"ledgerbridge/internal/core"
)

func recordAt(id string, ts time.Time) core.ChangeRecord {
	return core.NewChangeRecord(ts, core.ChangeUpdate, id, 1, nil)
}

func TestCurate(t *testing.T) {
	now := time.Date(2021, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   []core.ChangeRecord
		want []string
	}{
		{
			name: "empty stays empty",
			in:   nil,
			want: nil,
		},
		{
			name: "keeps records inside the window",
			in: []core.ChangeRecord{
				recordAt("a", now.Add(-time.Hour)),
				recordAt("b", now.Add(-23*time.Hour)),
				recordAt("c", now.Add(-25*time.Hour)),
			},
			want: []string{"a_1", "b_1"},
		},
		{
			name: "boundary is exclusive",
			in: []core.ChangeRecord{
				recordAt("a", now.Add(-time.Hour)),
				recordAt("b", now.Add(-24*time.Hour)),
			},
			want: []string{"a_1"},
		},
		{
			name: "keeps newest when all expired",
			in: []core.ChangeRecord{
				recordAt("newest", now.Add(-48*time.Hour)),
				recordAt("older", now.Add(-72*time.Hour)),
			},
			want: []string{"newest_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Curate(tt.in, now)
			if got == nil {
				t.Fatalf("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].Meta.ID != id {
					t.Fatalf("record %d: expected %s, got %s", i, id, got[i].Meta.ID)
				}
			}
		})
	}
}
