package database

import (
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/stoklog/stoklog-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no specific mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// unique_violation
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// check_violation
	case "23514":
		return mapCheckConstraint(pqErr)

	// foreign_key_violation
	case "23503":
		return errors.NotFound(referencedResource(pqErr.Constraint))

	// not_null_violation
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// serialization_failure, deadlock_detected, lock_not_available
	case "40001", "40P01", "55P03":
		return errors.ConcurrencyConflict(pqErr)

	// admin_shutdown, too_many_connections
	case "57P01", "53300":
		return errors.StorageFailure(pqErr)
	}

	if pqErr.Code.Class() == "08" {
		return errors.StorageFailure(pqErr)
	}
	return nil
}

// MapError normalizes an error returned by the database layer. AppErrors pass
// through, mapped Postgres errors become AppErrors, lost connections become
// STORAGE_FAILURE and anything else is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if mapped := MapPQError(err); mapped != nil {
		return mapped
	}

	var netErr net.Error
	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, sql.ErrConnDone) || stderrors.As(err, &netErr) {
		return errors.StorageFailure(err)
	}
	return err
}

// mapCheckConstraint maps CHECK constraint names to field-level validation errors.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "threshold_order"):
		return errors.Validation(map[string]string{
			"max_threshold": "must be greater than or equal to min_threshold",
		})

	case strings.Contains(constraint, "threshold"):
		return errors.Validation(map[string]string{
			"threshold": "must not be negative",
		})

	case strings.Contains(constraint, "quantity"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	case strings.Contains(constraint, "direction"):
		return errors.Validation(map[string]string{
			"direction": "must be one of: IN, OUT",
		})

	default:
		return errors.Validation(map[string]string{
			"constraint": constraint,
		})
	}
}

// referencedResource guesses the missing parent from a foreign key name such
// as batches_item_id_fkey.
func referencedResource(constraint string) string {
	for _, r := range []string{"warehouse", "category", "batch", "item", "tenant"} {
		if strings.Contains(constraint, "_"+r+"_id") {
			return r
		}
	}
	return "item"
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "items_name"):
		return "an item with this name already exists in the warehouse"
	case strings.Contains(constraint, "categories_name"):
		return "a category with this name already exists"
	case strings.Contains(constraint, "warehouses_name"):
		return "a warehouse with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
