package ranges

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// decoder turns raw driver values into Go text. Byte slices are always
// treated as UTF-8; strings only go through the decoder when enabled.
type decoder struct {
	enabled bool
}

func (d decoder) text(v any) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case []byte:
		s, err := d.utf8(t)
		return s, true, err
	case string:
		if !d.enabled {
			return t, true, nil
		}
		s, err := d.utf8([]byte(t))
		return s, true, err
	default:
		return fmt.Sprint(t), true, nil
	}
}

func (d decoder) utf8(b []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(string(out)), nil
}

func (d decoder) optionalText(v any) (*string, error) {
	s, ok, err := d.text(v)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (d decoder) record(row Row) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.IStart, err = toUint32(row[colIStart]); err != nil {
		return rec, fmt.Errorf("%s: %w", colIStart, err)
	}
	if rec.IEnd, err = toUint32(row[colIEnd]); err != nil {
		return rec, fmt.Errorf("%s: %w", colIEnd, err)
	}
	if rec.Start, _, err = d.text(row[colStart]); err != nil {
		return rec, fmt.Errorf("%s: %w", colStart, err)
	}
	if rec.End, _, err = d.text(row[colEnd]); err != nil {
		return rec, fmt.Errorf("%s: %w", colEnd, err)
	}
	if rec.Status, err = d.optionalText(row[colStatus]); err != nil {
		return rec, fmt.Errorf("%s: %w", colStatus, err)
	}
	if rec.City, err = d.optionalText(row[colCity]); err != nil {
		return rec, fmt.Errorf("%s: %w", colCity, err)
	}
	if rec.Region, err = d.optionalText(row[colRegion]); err != nil {
		return rec, fmt.Errorf("%s: %w", colRegion, err)
	}
	if rec.FederalDistrict, err = d.optionalText(row[colFederalDistrict]); err != nil {
		return rec, fmt.Errorf("%s: %w", colFederalDistrict, err)
	}
	if rec.Latitude, err = toOptionalFloat(row[colLatitude]); err != nil {
		return rec, fmt.Errorf("%s: %w", colLatitude, err)
	}
	if rec.Longitude, err = toOptionalFloat(row[colLongitude]); err != nil {
		return rec, fmt.Errorf("%s: %w", colLongitude, err)
	}
	if rec.InUpdate, err = toBool(row[colInUpdate]); err != nil {
		return rec, fmt.Errorf("%s: %w", colInUpdate, err)
	}
	return rec, nil
}

func toUint32(v any) (uint32, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range", n)
	}
	return uint32(n), nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range", t)
		}
		return int64(t), nil
	case float64:
		return int64(t), nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toOptionalFloat(v any) (*float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case []byte:
		p, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return nil, err
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		f = p
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
	return &f, nil
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case []byte:
		return strconv.ParseBool(string(t))
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("unexpected type %T", v)
	}
}
