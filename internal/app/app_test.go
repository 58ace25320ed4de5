package app

import "testing"

func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		args []string
		want int
	}{
		{args: nil, want: 2},
		{args: []string{"help"}, want: 0},
		{args: []string{"bogus"}, want: 2},
		{args: []string{"ingest"}, want: 2},
		{args: []string{"resume"}, want: 2},
		{args: []string{"ingest", "-h"}, want: 0},
	}
	for _, tc := range cases {
		if got := Run(tc.args); got != tc.want {
			t.Fatalf("Run(%v) = %d, want %d", tc.args, got, tc.want)
		}
	}
}
