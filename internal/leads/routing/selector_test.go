package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"directory_backend/internal/businesses"
	"directory_backend/internal/identity"

	"github.com/google/uuid"
)

type fakeDirectory struct {
	admins []identity.User
	err    error
}

func (f *fakeDirectory) ListAdministrators(ctx context.Context) ([]identity.User, error) {
	return f.admins, f.err
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
	err    error
	calls  int
}

func (f *fakeCounter) CountOpenAssigned(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[userID], nil
}

func TestSelectorPicksLeastLoaded(t *testing.T) {
	owner := uuid.New()
	adminA := uuid.New()
	adminB := uuid.New()

	directory := &fakeDirectory{admins: []identity.User{{ID: adminA}, {ID: adminB}}}
	counter := &fakeCounter{counts: map[uuid.UUID]int{owner: 3, adminA: 1, adminB: 2}}

	selector := NewSelector(directory, counter)
	chosen, err := selector.Select(context.Background(), businesses.Business{OwnerID: owner}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if chosen == nil || *chosen != adminA {
		t.Fatalf("Select() = %v, want %v", chosen, adminA)
	}
	if counter.calls != 3 {
		t.Errorf("counted %d handlers, want 3", counter.calls)
	}
}

func TestSelectorTieBreaksByEnumerationOrder(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()

	directory := &fakeDirectory{admins: []identity.User{{ID: admin}}}
	counter := &fakeCounter{counts: map[uuid.UUID]int{owner: 2, admin: 2}}

	selector := NewSelector(directory, counter)
	chosen, err := selector.Select(context.Background(), businesses.Business{OwnerID: owner}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if chosen == nil || *chosen != owner {
		t.Fatalf("Select() = %v, want owner %v on tie", chosen, owner)
	}
}

func TestSelectorDeduplicatesOwnerAdmin(t *testing.T) {
	owner := uuid.New()

	directory := &fakeDirectory{admins: []identity.User{{ID: owner}}}
	counter := &fakeCounter{counts: map[uuid.UUID]int{owner: 5}}

	selector := NewSelector(directory, counter)
	chosen, err := selector.Select(context.Background(), businesses.Business{OwnerID: owner}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if chosen == nil || *chosen != owner {
		t.Fatalf("Select() = %v, want %v", chosen, owner)
	}
	if counter.calls != 1 {
		t.Errorf("counted %d handlers, want 1 after dedup", counter.calls)
	}
}

func TestSelectorExplicitChoiceWins(t *testing.T) {
	explicit := uuid.New()

	directory := &fakeDirectory{err: errors.New("directory down")}
	selector := NewSelector(directory, &fakeCounter{})

	chosen, err := selector.Select(context.Background(), businesses.Business{OwnerID: uuid.New()}, &explicit)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if chosen == nil || *chosen != explicit {
		t.Fatalf("Select() = %v, want explicit %v", chosen, explicit)
	}
}

func TestSelectorNoEligibleHandlers(t *testing.T) {
	directory := &fakeDirectory{}
	selector := NewSelector(directory, &fakeCounter{})

	chosen, err := selector.Select(context.Background(), businesses.Business{}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if chosen != nil {
		t.Fatalf("Select() = %v, want nil when nobody is eligible", chosen)
	}
}

func TestSelectorPropagatesCountError(t *testing.T) {
	owner := uuid.New()
	directory := &fakeDirectory{}
	counter := &fakeCounter{err: errors.New("db timeout")}

	selector := NewSelector(directory, counter)
	if _, err := selector.Select(context.Background(), businesses.Business{OwnerID: owner}, nil); err == nil {
		t.Fatal("Select() expected error when counting fails")
	}
}
