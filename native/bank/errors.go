package bank

import "errors"

var (
	ErrNilState            = errors.New("bank: state not configured")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrNilCoin             = errors.New("bank: nil coin")
)
