package dbpkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsConcurrencyConflict(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "PlainError", err: errors.New("boom"), want: false},
		{name: "SerializationFailure", err: &pq.Error{Code: "40001"}, want: true},
		{name: "DeadlockDetected", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "LockNotAvailable", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "WrappedLockNotAvailable", err: fmt.Errorf("exec: %w", &pq.Error{Code: "55P03"}), want: true},
		{name: "UniqueViolation", err: &pq.Error{Code: "23505"}, want: false},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := IsConcurrencyConflict(tc.err); got != tc.want {
				t.Errorf("IsConcurrencyConflict(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestConstraint(t *testing.T) {
	t.Parallel()

	name, kind := Constraint(&pq.Error{Code: "23505", Constraint: "accounts_pkey"})
	if name != "accounts_pkey" || kind != "unique" {
		t.Errorf(`Constraint(unique) = (%q, %q), want ("accounts_pkey", "unique")`, name, kind)
	}

	name, kind = Constraint(&pq.Error{Code: "23514", Constraint: "accounts_balance_check"})
	if name != "accounts_balance_check" || kind != "check" {
		t.Errorf(`Constraint(check) = (%q, %q), want ("accounts_balance_check", "check")`, name, kind)
	}

	name, kind = Constraint(errors.New("boom"))
	if name != "" || kind != "" {
		t.Errorf(`Constraint(plain) = (%q, %q), want ("", "")`, name, kind)
	}
}
