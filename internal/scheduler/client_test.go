package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "routing" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClientSchedulesFollowUp(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	payload := LeadFollowUpPayload{
		LeadID:     uuid.NewString(),
		BusinessID: uuid.NewString(),
	}
	err = client.ScheduleLeadFollowUp(context.Background(), payload, time.Now().Add(4*time.Hour))
	if err != nil {
		t.Fatalf("ScheduleLeadFollowUp() error = %v", err)
	}

	var scheduled bool
	for _, key := range mr.Keys() {
		if strings.Contains(key, "scheduled") {
			scheduled = true
		}
	}
	if !scheduled {
		t.Errorf("no scheduled task key in redis, keys = %v", mr.Keys())
	}
}

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("NewClient() expected error without redis url")
	}
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	payload := LeadFollowUpPayload{
		LeadID:     uuid.NewString(),
		BusinessID: uuid.NewString(),
	}

	task, err := NewLeadFollowUpTask(payload)
	if err != nil {
		t.Fatalf("NewLeadFollowUpTask() error = %v", err)
	}
	if task.Type() != TaskLeadFollowUp {
		t.Errorf("task type = %s, want %s", task.Type(), TaskLeadFollowUp)
	}

	parsed, err := ParseLeadFollowUpPayload(task)
	if err != nil {
		t.Fatalf("ParseLeadFollowUpPayload() error = %v", err)
	}
	if parsed != payload {
		t.Errorf("parsed = %+v, want %+v", parsed, payload)
	}
}
