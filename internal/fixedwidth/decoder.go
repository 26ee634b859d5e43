// Package fixedwidth decodes the positional record layout of legacy
// order files.
//
// Each line carries six fields at fixed byte offsets:
//
//	[0,10)   user external id   (unsigned integer, zero/space padded)
//	[10,55)  user name          (whitespace padded)
//	[55,65)  order external id  (unsigned integer)
//	[65,75)  product external id (unsigned integer)
//	[75,87)  price              (decimal with '.', minor units after stripping)
//	[87,95)  order date         (YYYYMMDD)
//
// Decoding is pure positional slicing plus per-field parsing. Invalid
// input is never coerced to a zero value: an unparseable integer or date
// field fails the whole line with a *MalformedRecordError naming the
// field, so callers can abort the batch instead of persisting garbage.
package fixedwidth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LineWidth is the minimum number of bytes a record line must contain.
const LineWidth = 95

// Record is one decoded line of an order file. Identifiers are the
// external ids used as natural keys by the store; the price is in minor
// currency units.
type Record struct {
	UserID     int64
	UserName   string
	OrderID    int64
	ProductID  int64
	PriceCents int64
	OrderDate  time.Time
}

// MalformedRecordError reports a line whose field could not be decoded.
type MalformedRecordError struct {
	Line  int    // 1-based line number within the file, 0 when unknown
	Field string // field that failed to parse
	Value string // raw field text as sliced from the line
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: malformed %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// DecodeLine slices one fixed-width line into a Record.
//
// A line shorter than LineWidth is malformed as a whole; a line with a
// bad numeric or date field is malformed at that field. No partial
// record is ever returned alongside an error.
func DecodeLine(line string) (Record, error) {
	if len(line) < LineWidth {
		return Record{}, &MalformedRecordError{
			Field: "line",
			Value: line,
			Err:   fmt.Errorf("%d bytes, want at least %d", len(line), LineWidth),
		}
	}

	userID, err := parseID(line[0:10])
	if err != nil {
		return Record{}, &MalformedRecordError{Field: "user_id", Value: line[0:10], Err: err}
	}

	orderID, err := parseID(line[55:65])
	if err != nil {
		return Record{}, &MalformedRecordError{Field: "order_id", Value: line[55:65], Err: err}
	}

	productID, err := parseID(line[65:75])
	if err != nil {
		return Record{}, &MalformedRecordError{Field: "product_id", Value: line[65:75], Err: err}
	}

	priceCents, err := parsePriceCents(line[75:87])
	if err != nil {
		return Record{}, &MalformedRecordError{Field: "price_cents", Value: line[75:87], Err: err}
	}

	orderDate, err := parseDate(line[87:95])
	if err != nil {
		return Record{}, &MalformedRecordError{Field: "order_date", Value: line[87:95], Err: err}
	}

	return Record{
		UserID:     userID,
		UserName:   strings.TrimSpace(line[10:55]),
		OrderID:    orderID,
		ProductID:  productID,
		PriceCents: priceCents,
		OrderDate:  orderDate,
	}, nil
}

// parseID parses an unsigned integer field, ignoring the layout's space
// and zero padding.
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	// Bit size 63 keeps the value representable as int64.
	v, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// parsePriceCents parses the price field into minor currency units.
// The field carries a decimal separator ("     1836.74"); stripping the
// dot yields the amount in cents.
func parsePriceCents(s string) (int64, error) {
	return parseID(strings.ReplaceAll(s, ".", ""))
}

// parseDate parses a YYYYMMDD calendar date.
func parseDate(s string) (time.Time, error) {
	return time.Parse("20060102", strings.TrimSpace(s))
}
