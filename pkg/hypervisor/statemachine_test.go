package hypervisor

import "testing"

func newTestHandle(status MicroVMStatus) *Handle {
	return &Handle{status: status}
}

func TestTransitionTableAllowedPaths(t *testing.T) {
	cases := []struct {
		from MicroVMStatus
		op   string
		want MicroVMStatus
	}{
		{StatusNone, opStart, StatusStart},
		{StatusStart, opSucceed, StatusRunning},
		{StatusStart, opFail, StatusFailure},
		{StatusRunning, opPause, StatusPaused},
		{StatusRunning, opStop, StatusStop},
		{StatusRunning, opFail, StatusFailure},
		{StatusPaused, opResume, StatusRunning},
		{StatusPaused, opFail, StatusFailure},
		{StatusStop, opDelete, StatusDelete},
		{StatusFailure, opDelete, StatusDelete},
	}

	for _, c := range cases {
		h := newTestHandle(c.from)
		got, err := h.transition(c.op)
		if err != nil {
			t.Errorf("%s -%s-> : unexpected error: %v", c.from, c.op, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s -%s-> %s, want %s", c.from, c.op, got, c.want)
		}
		if h.currentStatus() != c.want {
			t.Errorf("status not persisted: got %s, want %s", h.currentStatus(), c.want)
		}
	}
}

func TestTransitionRejectsDisallowedPairs(t *testing.T) {
	cases := []struct {
		from MicroVMStatus
		op   string
	}{
		{StatusNone, opPause},
		{StatusNone, opStop},
		{StatusRunning, opStart},
		{StatusPaused, opStop},
		{StatusStop, opStart},
		{StatusDelete, opStart},
		{StatusDelete, opDelete},
	}

	for _, c := range cases {
		h := newTestHandle(c.from)
		before := h.currentStatus()

		_, err := h.transition(c.op)
		if err == nil {
			t.Errorf("%s -%s-> expected rejection, got none", c.from, c.op)
			continue
		}

		var stateErr *StateError
		if !asStateError(err, &stateErr) {
			t.Errorf("%s -%s-> expected *StateError, got %T", c.from, c.op, err)
			continue
		}

		if h.currentStatus() != before {
			t.Errorf("rejected transition changed status: %s -> %s", before, h.currentStatus())
		}
	}
}

func asStateError(err error, target **StateError) bool {
	se, ok := err.(*StateError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func TestRequireStatus(t *testing.T) {
	h := newTestHandle(StatusRunning)

	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}

	if err := h.requireStatus(StatusPaused); err == nil {
		t.Error("expected rejection for non-matching status")
	}
}
