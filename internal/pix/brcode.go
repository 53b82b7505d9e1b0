package pix

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Merchant identifies the receiving side of a static PIX charge.
type Merchant struct {
	Key  string
	Name string
	City string
}

var DefaultMerchant = Merchant{
	Key:  "pix@monety.app",
	Name: "MONETY",
	City: "SAO PAULO",
}

const (
	gui          = "br.gov.bcb.pix"
	maxNameLen   = 25
	maxCityLen   = 15
	maxTxIDLen   = 25
	currencyBRL  = "986"
	countryBR    = "BR"
	categoryNone = "0000"
)

// Payload builds the "copia e cola" BR Code string for amount. txid is
// reduced to at most 25 alphanumerics.
func Payload(m Merchant, amount decimal.Decimal, txid string) (string, error) {
	if strings.TrimSpace(m.Key) == "" {
		return "", fmt.Errorf("pix key is required")
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("amount must be > 0")
	}
	var b strings.Builder
	b.WriteString(field("00", "01"))
	b.WriteString(field("26", field("00", gui)+field("01", m.Key)))
	b.WriteString(field("52", categoryNone))
	b.WriteString(field("53", currencyBRL))
	b.WriteString(field("54", amount.StringFixed(2)))
	b.WriteString(field("58", countryBR))
	b.WriteString(field("59", clip(strings.ToUpper(m.Name), maxNameLen)))
	b.WriteString(field("60", clip(strings.ToUpper(m.City), maxCityLen)))
	b.WriteString(field("62", field("05", sanitizeTxID(txid))))
	b.WriteString("6304")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", CRC16(payload)), nil
}

func field(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sanitizeTxID(txid string) string {
	var b strings.Builder
	for _, r := range txid {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := clip(b.String(), maxTxIDLen)
	if out == "" {
		return "***"
	}
	return out
}

// CRC16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func CRC16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
