package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// maxOffset: дальше этой позиции строк всё равно нет, OFFSET не переполняется
	maxOffset = math.MaxInt32
)

type PageQuery struct {
	Page  int
	Limit int
}

// ParsePageQuery разбирает page/limit из строки запроса. Пустые значения
// заменяются значениями по умолчанию, limit сверху ограничен MaxPageLimit.
func ParsePageQuery(page, limit string) (PageQuery, error) {
	q := PageQuery{Page: 1, Limit: DefaultPageLimit}
	if s := strings.TrimSpace(page); s != "" {
		n, ok := parsePositive(s)
		if !ok {
			return PageQuery{}, fmt.Errorf("%w: page must be a positive integer", ErrValidation)
		}
		q.Page = n
	}
	if s := strings.TrimSpace(limit); s != "" {
		n, ok := parsePositive(s)
		if !ok {
			return PageQuery{}, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
		}
		q.Limit = n
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q, nil
}

// parsePositive разбирает положительное целое. Слишком большое число
// насыщается до math.MaxInt: такая страница просто пуста.
func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
		return math.MaxInt, true
	}
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (q PageQuery) Offset() int {
	if q.Page <= 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > maxOffset/q.Limit {
		return maxOffset
	}
	return (q.Page - 1) * q.Limit
}

func (q PageQuery) Pagination(total int64) models.Pagination {
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return models.Pagination{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

func ParseTransactionStatus(s string) (*models.TransactionStatus, error) {
	if s == "" {
		return nil, nil
	}
	status := models.TransactionStatus(s)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrValidation, s)
	}
	return &status, nil
}

func ParseWithdrawalStatus(s string) (*models.WithdrawalStatus, error) {
	if s == "" {
		return nil, nil
	}
	status := models.WithdrawalStatus(s)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", ErrValidation, s)
	}
	return &status, nil
}
