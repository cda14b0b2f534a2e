package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// translateError maps gorm errors to the repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repositories.ErrDuplicate
	}
	// Postgres unique_violation surfaces as a driver error gorm does not
	// always classify. Matching on SQLSTATE keeps the driver out of the
	// service layer.
	if strings.Contains(err.Error(), "SQLSTATE 23505") {
		return repositories.ErrDuplicate
	}
	return err
}

// applySearch adds a case-insensitive LIKE across the given columns.
func applySearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	pattern := "%" + strings.ToLower(search) + "%"
	clause := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		clause[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = pattern
	}
	return query.Where(strings.Join(clause, " OR "), args...)
}

// applyPaginationAndSort applies whitelisted sorting plus limit/offset.
// Unknown sort columns fall back to created_at so user input never reaches
// the ORDER BY clause verbatim.
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int, allowed map[string]bool) *gorm.DB {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = "created_at"
	}
	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}
	query = query.Order(sortBy + " " + sortOrder)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
