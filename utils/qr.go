package utils

import (
	qrcode "github.com/skip2/go-qrcode"
)

// PaymentQRPNG renders a UPI payment URI as a 256px PNG.
func PaymentQRPNG(uri string) ([]byte, error) {
	return qrcode.Encode(uri, qrcode.Medium, 256)
}
