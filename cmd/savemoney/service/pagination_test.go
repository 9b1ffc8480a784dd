package service

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

func TestParsePageQuery(t *testing.T) {
	tests := []struct {
		page, limit string
		want        PageQuery
		wantErr     bool
	}{
		{"", "", PageQuery{Page: 1, Limit: 20}, false},
		{"3", "10", PageQuery{Page: 3, Limit: 10}, false},
		{"1", "500", PageQuery{Page: 1, Limit: 100}, false},
		{"0", "", PageQuery{}, true},
		{"", "-1", PageQuery{}, true},
		{"abc", "", PageQuery{}, true},
		{"99999999999999999999", "", PageQuery{Page: math.MaxInt, Limit: 20}, false},
		{"1", "99999999999999999999", PageQuery{Page: 1, Limit: 100}, false},
		{"-99999999999999999999", "", PageQuery{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePageQuery(tt.page, tt.limit)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("page=%q limit=%q: expected ErrValidation, got %v", tt.page, tt.limit, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("page=%q limit=%q: got %+v (%v)", tt.page, tt.limit, got, err)
		}
	}
}

func TestPageQueryPagination(t *testing.T) {
	q := PageQuery{Page: 2, Limit: 20}
	if q.Offset() != 20 {
		t.Fatalf("expected offset 20, got %d", q.Offset())
	}
	p := q.Pagination(45)
	if p.TotalPages != 3 || p.Total != 45 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if q.Pagination(0).TotalPages != 0 {
		t.Fatalf("empty result must have zero pages")
	}
}

func TestPageQueryOffsetDoesNotOverflow(t *testing.T) {
	for _, page := range []string{"100000000000000001", "99999999999999999999", "21474837"} {
		q, err := ParsePageQuery(page, "100")
		if err != nil {
			t.Fatalf("page=%s: %v", page, err)
		}
		if off := q.Offset(); off < 0 || off > maxOffset {
			t.Fatalf("page=%s: offset %d out of range", page, off)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseTransactionStatus(""); s != nil || err != nil {
		t.Fatalf("empty status must be no filter")
	}
	if s, err := ParseTransactionStatus("confirmed"); err != nil || *s != models.TransactionConfirmed {
		t.Fatalf("unexpected: %v %v", s, err)
	}
	if _, err := ParseTransactionStatus("done"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := ParseWithdrawalStatus("processing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseWithdrawalStatus("cancelled"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAccountDetailsValidate(t *testing.T) {
	v := newDetailsValidator()
	tests := []struct {
		method models.WithdrawalMethod
		raw    string
		ok     bool
	}{
		{models.MethodUPI, `{"upiId":"name@okhdfc"}`, true},
		{models.MethodUPI, `{"upiId":"no-at-sign"}`, false},
		{models.MethodBank, `{"accountNumber":"123456789012","ifsc":"HDFC0001234","accountHolderName":"A Kumar"}`, true},
		{models.MethodBank, `{"accountNumber":"1234","ifsc":"HDFC0001234","accountHolderName":"A Kumar"}`, false},
		{models.MethodBank, `{"accountNumber":"123456789012","ifsc":"hdfc1234","accountHolderName":"A Kumar"}`, false},
		{models.MethodPaytm, `{"phone":"9876543210"}`, true},
		{models.MethodPaytm, `{"phone":"98765"}`, false},
		{models.MethodVoucher, `{"email":"me@example.com","brand":"Amazon"}`, true},
		{models.MethodVoucher, `{"email":"not-an-email"}`, false},
		{models.MethodUPI, `null`, false},
		{models.MethodUPI, `[1,2]`, false},
	}
	for _, tt := range tests {
		err := v.Validate(tt.method, json.RawMessage(tt.raw))
		if tt.ok && err != nil {
			t.Fatalf("%s %s: unexpected error %v", tt.method, tt.raw, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidAccountDetails) {
			t.Fatalf("%s %s: expected ErrInvalidAccountDetails, got %v", tt.method, tt.raw, err)
		}
	}
}

func TestRegisterPatternsRejectsReservedTag(t *testing.T) {
	v := validator.New()
	err := registerPatterns(v, map[string]*regexp.Regexp{"omitempty": upiPattern})
	if err == nil {
		t.Fatalf("expected an error for a reserved tag")
	}
	if err := registerPatterns(v, map[string]*regexp.Regexp{"upi": upiPattern}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
