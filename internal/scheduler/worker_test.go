package scheduler

import (
	"testing"
	"time"

	"directory_backend/internal/leads/domain"
	"directory_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func TestFollowUpNeeded(t *testing.T) {
	handler := uuid.New()
	responded := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		lead repository.Lead
		want bool
	}{
		{
			name: "assigned new lead without response",
			lead: repository.Lead{Status: domain.StatusNew, AssignedTo: &handler},
			want: true,
		},
		{
			name: "already responded",
			lead: repository.Lead{Status: domain.StatusNew, AssignedTo: &handler, FirstResponseAt: &responded},
			want: false,
		},
		{
			name: "unassigned",
			lead: repository.Lead{Status: domain.StatusNew},
			want: false,
		},
		{
			name: "contacted",
			lead: repository.Lead{Status: domain.StatusContacted, AssignedTo: &handler, FirstResponseAt: &responded},
			want: false,
		},
		{
			// NEW can close out directly, which leaves first_response_at
			// empty. No reminder for a lead that is already done.
			name: "converted without response",
			lead: repository.Lead{Status: domain.StatusConverted, AssignedTo: &handler},
			want: false,
		},
		{
			name: "lost without response",
			lead: repository.Lead{Status: domain.StatusLost, AssignedTo: &handler},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := followUpNeeded(tt.lead); got != tt.want {
				t.Errorf("followUpNeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}
