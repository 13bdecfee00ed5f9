// Package xrpl holds the small amount of XRPL knowledge the bot needs:
// currency code normalisation and decoding, and issuer address checks.
package xrpl

import (
	"encoding/hex"
	"strings"
)

// base58 alphabet used by XRPL classic addresses
const addressAlphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

// NormalizeCurrency trims the code and upper-cases 160-bit hex codes.
// Three-letter codes are case-sensitive on the ledger and are kept as-is.
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if isHexCurrency(code) {
		return strings.ToUpper(code)
	}
	return code
}

// DecodeCurrency renders a 40-hex currency as text when it decodes to printable ASCII,
// e.g. 534F4C4F00000000000000000000000000000000 -> SOLO.
func DecodeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if !isHexCurrency(code) {
		return code
	}
	raw, err := hex.DecodeString(code)
	if err != nil {
		return code
	}
	// a leading 0x00 byte marks a standard-format code rather than text
	if raw[0] == 0 {
		return strings.ToUpper(code)
	}
	text := strings.TrimRight(string(raw), "\x00")
	for _, r := range text {
		if r < 0x20 || r > 0x7e {
			return strings.ToUpper(code)
		}
	}
	return text
}

// TokenID identifies an issued token on the ledger
func TokenID(currency, issuer string) string {
	return NormalizeCurrency(currency) + "." + strings.TrimSpace(issuer)
}

// IsValidAddress is a shape check only; the checksum is not verified.
func IsValidAddress(addr string) bool {
	if len(addr) < 25 || len(addr) > 35 || addr[0] != 'r' {
		return false
	}
	for _, r := range addr {
		if !strings.ContainsRune(addressAlphabet, r) {
			return false
		}
	}
	return true
}

// ShortAddress rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY -> rPEPPE...6GDY
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func isHexCurrency(code string) bool {
	if len(code) != 40 {
		return false
	}
	_, err := hex.DecodeString(code)
	return err == nil
}
