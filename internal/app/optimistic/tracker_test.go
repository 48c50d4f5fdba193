package optimistic

import (
	"context"
	"strconv"
	"testing"

	"blogclient/internal/pkg/errs"
)

func flip(v bool) bool { return !v }

func TestMutateAppliesBeforeCommit(t *testing.T) {
	tr := NewTracker[string, bool]()

	out := tr.Mutate(context.Background(), "k", false, flip, func(ctx context.Context, next bool) (bool, *errs.CustomError) {
		if v, _ := tr.Get("k"); !v {
			t.Fatalf("expected the optimistic value to be visible before the commit resolves")
		}
		return next, nil
	})

	if !out.OK() || !out.Value || out.Stale {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestMutateRollsBackExactly(t *testing.T) {
	tr := NewTracker[string, int]()
	tr.Seed("k", 3)

	out := tr.Mutate(context.Background(), "k", 0, func(v int) int { return v + 1 },
		func(ctx context.Context, next int) (int, *errs.CustomError) {
			return next, errs.NewError(errs.ErrNetwork)
		})

	if out.OK() {
		t.Fatalf("expected the mutation to fail")
	}
	if got, want := out.Value, 3; got != want {
		t.Fatalf("unexpected value: got %d want %d", got, want)
	}
	if got, _ := tr.Get("k"); got != 3 {
		t.Fatalf("unexpected stored value: %d", got)
	}
}

func TestMutateUsesConfirmedValue(t *testing.T) {
	tr := NewTracker[string, int]()

	out := tr.Mutate(context.Background(), "k", 3, func(v int) int { return v + 1 },
		func(ctx context.Context, next int) (int, *errs.CustomError) { return 10, nil })

	if got, want := out.Value, 10; got != want {
		t.Fatalf("unexpected value: got %d want %d", got, want)
	}
}

// blockingCommit signals started, then waits for the error to settle with.
func blockingCommit(started chan<- struct{}, release <-chan *errs.CustomError) CommitFunc[bool] {
	return func(ctx context.Context, next bool) (bool, *errs.CustomError) {
		started <- struct{}{}
		err := <-release
		return next, err
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	testCases := []struct {
		Description string
		OlderErr    *errs.CustomError
		NewerErr    *errs.CustomError
		Expected    bool
	}{
		// initial false; older sets true, newer sets false again.
		{Description: "both succeed", Expected: false},
		{Description: "older fails", OlderErr: errs.NewError(errs.ErrNetwork), Expected: false},
		{Description: "newer fails, older succeeds", NewerErr: errs.NewError(errs.ErrNetwork), Expected: true},
		{Description: "both fail", OlderErr: errs.NewError(errs.ErrNetwork), NewerErr: errs.NewError(errs.ErrNetwork), Expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			tr := NewTracker[string, bool]()
			tr.Seed("k", false)

			started := make(chan struct{})
			releaseOlder := make(chan *errs.CustomError)
			releaseNewer := make(chan *errs.CustomError)

			olderDone := make(chan Outcome[bool], 1)
			go func() {
				olderDone <- tr.Mutate(context.Background(), "k", false, flip, blockingCommit(started, releaseOlder))
			}()
			<-started

			newerDone := make(chan Outcome[bool], 1)
			go func() {
				newerDone <- tr.Mutate(context.Background(), "k", false, flip, blockingCommit(started, releaseNewer))
			}()
			<-started

			// The newer response arrives first, the older one last.
			releaseNewer <- tc.NewerErr
			newer := <-newerDone
			if newer.Stale {
				t.Fatalf("the newest mutation must not be stale")
			}

			releaseOlder <- tc.OlderErr
			older := <-olderDone
			if !older.Stale {
				t.Fatalf("the older mutation must be reported stale")
			}

			if got, _ := tr.Get("k"); got != tc.Expected {
				t.Fatalf("unexpected final value: got %v want %v", got, tc.Expected)
			}
		})
	}
}

func TestSeedIgnoredWhileInFlight(t *testing.T) {
	tr := NewTracker[string, bool]()

	started := make(chan struct{})
	release := make(chan *errs.CustomError)
	done := make(chan Outcome[bool], 1)

	go func() {
		done <- tr.Mutate(context.Background(), "k", false, flip, blockingCommit(started, release))
	}()
	<-started

	tr.Seed("k", false)
	if got, _ := tr.Get("k"); !got {
		t.Fatalf("seeding must not overwrite an in-flight optimistic value")
	}

	release <- nil
	<-done

	tr.Seed("k", false)
	if got, _ := tr.Get("k"); got {
		t.Fatalf("seeding must apply once nothing is in flight")
	}

	tr.Forget("k")
	if _, ok := tr.Get("k"); ok {
		t.Fatalf("expected the key to be forgotten")
	}
}

func TestCanceledCommitReverts(t *testing.T) {
	tr := NewTracker[string, bool]()
	tr.Seed("k", true)

	out := tr.Mutate(context.Background(), "k", true, flip, func(ctx context.Context, next bool) (bool, *errs.CustomError) {
		return next, errs.NewError(errs.ErrRequestCanceled)
	})

	if out.Err == nil || out.Err.Kind != errs.KindCanceled || !out.Value {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestPruneKeepsInFlightKeys(t *testing.T) {
	tr := NewTracker[string, bool]()
	tr.Seed("a", true)
	tr.Seed("b", true)

	started := make(chan struct{})
	release := make(chan *errs.CustomError)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Mutate(context.Background(), "c", false, flip, blockingCommit(started, release))
	}()
	<-started

	if got, want := tr.Prune(func(k string) bool { return k == "a" }), 1; got != want {
		t.Fatalf("unexpected pruned count: got %d want %d", got, want)
	}
	if got, want := tr.Len(), 2; got != want {
		t.Fatalf("unexpected length: got %d want %d", got, want)
	}
	if _, ok := tr.Get("b"); ok {
		t.Fatalf("expected b to be pruned")
	}

	release <- nil
	<-done

	if got, want := tr.Prune(func(string) bool { return false }), 2; got != want {
		t.Fatalf("unexpected pruned count: got %d want %d", got, want)
	}
	if got := tr.Len(); got != 0 {
		t.Fatalf("unexpected length after pruning everything: %d", got)
	}
}

func TestScopeEvictsOnViewerChangeAndWhenFull(t *testing.T) {
	s := newScope[int]()

	for i := 0; i < 3; i++ {
		s.tracker.Seed(s.key("ada", strconv.Itoa(i)), i)
	}
	s.tracker.Seed(s.key("bob", "0"), 9)

	if got, want := s.tracker.Len(), 1; got != want {
		t.Fatalf("unexpected length after viewer change: got %d want %d", got, want)
	}

	for i := 0; i < maxTracked; i++ {
		s.tracker.Seed(s.key("bob", strconv.Itoa(i)), i)
	}
	s.key("bob", "next")

	if got := s.tracker.Len(); got != 0 {
		t.Fatalf("expected a full tracker to be emptied, got %d entries", got)
	}
}
