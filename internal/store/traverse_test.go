package store

import (
	"errors"
	"testing"
)

func TestTraversalScenario(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	mustAddSite(t, st, "a.example")
	mustAddSite(t, st, "b.example")
	mustApprove(t, st, "a.example", admin.ID)
	mustApprove(t, st, "b.example", admin.ID)

	got, err := st.Random(t.Context())
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if got != "a.example" && got != "b.example" {
		t.Fatalf("random returned %q", got)
	}

	next, err := st.Next(t.Context(), "a.example")
	if err != nil || next != "b.example" {
		t.Fatalf("expected next(a)=b, got %q err=%v", next, err)
	}
	if _, err := st.Next(t.Context(), "b.example"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past the end, got %v", err)
	}
}

func TestTraversalIsMonotonicWithoutWrap(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		mustAddSite(t, st, u)
	}
	// approval order differs from insertion order; traversal follows ids.
	mustApprove(t, st, "https://c.example", admin.ID)
	mustApprove(t, st, "https://a.example", admin.ID)
	mustApprove(t, st, "https://b.example", admin.ID)

	cases := []struct {
		from string
		next string
		prev string
	}{
		{"https://a.example", "https://b.example", ""},
		{"https://b.example", "https://c.example", "https://a.example"},
		{"https://c.example", "", "https://b.example"},
	}
	for _, tc := range cases {
		next, err := st.Next(t.Context(), tc.from)
		if tc.next == "" {
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("next(%s): expected ErrNotFound, got %q %v", tc.from, next, err)
			}
		} else if err != nil || next != tc.next {
			t.Fatalf("next(%s): expected %s, got %q %v", tc.from, tc.next, next, err)
		}

		prev, err := st.Prev(t.Context(), tc.from)
		if tc.prev == "" {
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("prev(%s): expected ErrNotFound, got %q %v", tc.from, prev, err)
			}
		} else if err != nil || prev != tc.prev {
			t.Fatalf("prev(%s): expected %s, got %q %v", tc.from, tc.prev, prev, err)
		}
	}
}

func TestTraversalFromUnapprovedSite(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	mustAddSite(t, st, "https://approved.example")
	mustAddSite(t, st, "https://pending.example")
	mustAddSite(t, st, "https://denied.example")
	mustApprove(t, st, "https://approved.example", admin.ID)
	if _, err := st.DenySite(t.Context(), "https://denied.example", "", admin.ID); err != nil {
		t.Fatalf("deny: %v", err)
	}

	for _, u := range []string{"https://pending.example", "https://denied.example", "https://unknown.example"} {
		if _, err := st.Next(t.Context(), u); !errors.Is(err, ErrNotApproved) {
			t.Fatalf("next(%s): expected ErrNotApproved, got %v", u, err)
		}
		if _, err := st.Prev(t.Context(), u); !errors.Is(err, ErrNotApproved) {
			t.Fatalf("prev(%s): expected ErrNotApproved, got %v", u, err)
		}
	}
}

func TestRandomWithoutApprovedSites(t *testing.T) {
	st := newTestStore(t)
	mustAddSite(t, st, "https://pending.example")
	if _, err := st.Random(t.Context()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
