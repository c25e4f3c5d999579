package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// CodePrefix + YYYYMMDD + zero-padded per-day sequence.
	CodePrefix = "ORD"

	transactionCodeLength = 10
	letters               = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digits                = "23456789"
)

func FormatOrderCode(date time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%03d", CodePrefix, date.UTC().Format("20060102"), seq)
}

func DateShard(date time.Time) string {
	return date.UTC().Format("20060102")
}

// NewTransactionCode returns a short uppercase code for bank-transfer memos.
// It always mixes letters and digits so the memo extractor can tell it apart
// from pure-numeric bank reference numbers, and it skips easily confused
// characters (0/O, 1/I).
func NewTransactionCode() (string, error) {
	buf := make([]byte, transactionCodeLength)
	charset := letters + digits
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		buf[i] = charset[idx.Int64()]
	}
	// Force the mix: first char a letter, second a digit.
	li, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
	if err != nil {
		return "", err
	}
	di, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
	if err != nil {
		return "", err
	}
	buf[0] = letters[li.Int64()]
	buf[1] = digits[di.Int64()]
	return string(buf), nil
}
