package enums

import "testing"

func TestRoundStageCanAdvanceTo(t *testing.T) {
	cases := []struct {
		from, to RoundStage
		want     bool
	}{
		{RoundStageApproval, RoundStageFund, true},
		{RoundStageFund, RoundStageLaunch, true},
		{RoundStageLaunch, RoundStageLive, true},
		{RoundStageLive, RoundStageClosed, true},
		{RoundStageApproval, RoundStageRejected, true},
		{RoundStageFund, RoundStageApproval, false},
		{RoundStageApproval, RoundStageLaunch, false},
		{RoundStageFund, RoundStageRejected, false},
		{RoundStageClosed, RoundStageClosed, false},
		{RoundStageRejected, RoundStageFund, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestShareStatusTransitions(t *testing.T) {
	legal := map[ShareStatus][]ShareStatus{
		ShareStatusAllocated: {ShareStatusVested, ShareStatusTransferred, ShareStatusCancelled},
		ShareStatusVested:    {ShareStatusTransferred},
	}
	for _, from := range validShareStatuses {
		for _, to := range validShareStatuses {
			want := false
			for _, allowed := range legal[from] {
				if allowed == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestInvestmentStatusTerminal(t *testing.T) {
	if InvestmentStatusFailed.CanTransitionTo(InvestmentStatusConfirmed) {
		t.Fatal("failed must be terminal")
	}
	if InvestmentStatusRefunded.CanTransitionTo(InvestmentStatusCompleted) {
		t.Fatal("refunded must be terminal")
	}
	if !InvestmentStatusPending.CanTransitionTo(InvestmentStatusConfirmed) {
		t.Fatal("pending -> confirmed must be allowed")
	}
	if InvestmentStatusPending.CanTransitionTo(InvestmentStatusCompleted) {
		t.Fatal("pending -> completed skips confirmation")
	}
}

func TestParseCurrencyIsCaseInsensitive(t *testing.T) {
	got, err := ParseCurrency(" eur ")
	if err != nil || got != CurrencyEUR {
		t.Fatalf("expected EUR, got %q (%v)", got, err)
	}
	if _, err := ParseCurrency("DOGE"); err == nil {
		t.Fatal("expected unknown currency to fail")
	}
}
