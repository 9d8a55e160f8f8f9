package domain

import "testing"

func TestScorePriorityReferralAlwaysHigh(t *testing.T) {
	for _, volume := range []int{0, 9, 10, 500} {
		if got := ScorePriority(SourceReferral, volume, PriorityLow); got != PriorityHigh {
			t.Fatalf("referral lead at volume %d scored %s, want HIGH", volume, got)
		}
	}
}

func TestScorePriorityVolumeThreshold(t *testing.T) {
	cases := []struct {
		name    string
		source  Source
		volume  int
		current Priority
		want    Priority
	}{
		{"below threshold website", SourceWebsite, 9, PriorityLow, PriorityHigh},
		{"below threshold phone", SourcePhone, 0, PriorityMedium, PriorityHigh},
		{"at threshold website keeps current", SourceWebsite, 10, PriorityLow, PriorityLow},
		{"at threshold other keeps current", SourceOther, 10, PriorityUrgent, PriorityUrgent},
		{"enrichment above threshold", SourceEnrichment, 50, PriorityLow, PriorityMedium},
		{"social media above threshold", SourceSocialMedia, 11, PriorityHigh, PriorityMedium},
		{"email above threshold keeps current", SourceEmail, 20, PriorityMedium, PriorityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScorePriority(tc.source, tc.volume, tc.current); got != tc.want {
				t.Fatalf("ScorePriority(%s, %d, %s) = %s, want %s",
					tc.source, tc.volume, tc.current, got, tc.want)
			}
		})
	}
}
