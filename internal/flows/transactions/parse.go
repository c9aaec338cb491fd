package transactions

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errBadAmount = errors.New("transactions: not an amount")

// parseAmount evaluates an amount expression. Plain numbers are taken as-is;
// a leading + - * or / applies the operand to base, the previously shown
// amount. Comma decimal separators are accepted. The result is always the
// absolute value and must be positive and finite.
func parseAmount(expr string, base float64) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(expr), ",", ".")
	if s == "" {
		return 0, errBadAmount
	}

	op := byte(0)
	if strings.IndexByte("+-*/", s[0]) >= 0 && len(s) > 1 {
		op = s[0]
		s = s[1:]
	}

	operand, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errBadAmount
	}

	result := operand
	switch op {
	case '+':
		result = base + operand
	case '-':
		result = base - operand
	case '*':
		result = base * operand
	case '/':
		if operand == 0 {
			return 0, errBadAmount
		}
		result = base / operand
	}

	result = math.Abs(result)
	if result == 0 || math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, errBadAmount
	}
	return result, nil
}

// parseEntry splits a free-text entry into its two grammars: a bare amount
// expression, or a description followed by one. The description is every
// field but the last. ok is false when the text matches neither grammar.
func parseEntry(text string, base float64) (description string, amount float64, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", 0, false
	}

	amount, err := parseAmount(fields[len(fields)-1], base)
	if err != nil {
		return "", 0, false
	}
	return strings.Join(fields[:len(fields)-1], " "), amount, true
}

// formatAmount renders an amount the way it is sent to the ledger.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
