package utils

import (
	"fmt"
	"net/url"
	"strconv"
)

// BuildUPIURI builds the upi://pay deep link encoded into payment QR codes.
// Scanning apps expect amounts with at most two decimals and INR currency.
func BuildUPIURI(payeeUPI, payeeName string, amount float64, note string) string {
	q := url.Values{}
	q.Set("pa", payeeUPI)
	q.Set("pn", payeeName)
	q.Set("am", strconv.FormatFloat(amount, 'f', 2, 64))
	q.Set("cu", "INR")
	if note != "" {
		q.Set("tn", note)
	}
	return fmt.Sprintf("upi://pay?%s", q.Encode())
}
