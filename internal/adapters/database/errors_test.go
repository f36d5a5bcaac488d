package database_test

import (
	"fmt"
	"testing"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	wrap := func(code string) error {
		return fmt.Errorf("failed to do the thing: %w", &pq.Error{Code: pq.ErrorCode(code), Constraint: "some_constraint"})
	}

	cases := []struct {
		name       string
		err        error
		unique     bool
		lock       bool
		foreignKey bool
	}{
		{name: "unique violation", err: wrap("23505"), unique: true},
		{name: "lock not available", err: wrap("55P03"), lock: true},
		{name: "foreign key violation", err: wrap("23503"), foreignKey: true},
		{name: "other pq error", err: wrap("42P01")},
		{name: "plain error", err: fmt.Errorf("nope")},
		{name: "nil", err: nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, c.unique, database.IsUniqueViolation(c.err))
			require.Equal(t, c.lock, database.IsLockNotAvailable(c.err))
			require.Equal(t, c.foreignKey, database.IsForeignKeyViolation(c.err))
		})
	}

	require.Equal(t, "some_constraint", database.ConstraintName(wrap("23505")))
	require.Empty(t, database.ConstraintName(fmt.Errorf("nope")))
}
