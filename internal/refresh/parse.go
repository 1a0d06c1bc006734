package refresh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/geobase/internal/ranges"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultCharset is the encoding of the upstream text files.
const DefaultCharset = "windows-1251"

// noCity marks a range without a city reference in cidr_optim.txt.
const noCity = "-"

// City is one row of cities.txt.
type City struct {
	ID              string
	Name            string
	Region          string
	FederalDistrict string
	Latitude        float64
	Longitude       float64
}

func charsetDecoder(charset string) (*encoding.Decoder, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	return enc.NewDecoder(), nil
}

// eachLine calls fn for every non-blank line of r, decoded from charset,
// split on tabs.
func eachLine(r io.Reader, charset string, fn func(lineNo int, fields []string) error) error {
	dec, err := charsetDecoder(charset)
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(transform.NewReader(r, dec))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if err := fn(lineNo, fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ParseCities reads cities.txt: id, city, region, federal district, lat, lon.
func ParseCities(r io.Reader, charset string) (map[string]City, error) {
	out := map[string]City{}
	err := eachLine(r, charset, func(lineNo int, f []string) error {
		if len(f) < 6 {
			return fmt.Errorf("%s line %d: want 6 fields, got %d", CitiesFile, lineNo, len(f))
		}
		lat, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return fmt.Errorf("%s line %d: latitude: %w", CitiesFile, lineNo, err)
		}
		lon, err := strconv.ParseFloat(f[5], 64)
		if err != nil {
			return fmt.Errorf("%s line %d: longitude: %w", CitiesFile, lineNo, err)
		}
		if _, dup := out[f[0]]; dup {
			return fmt.Errorf("%s line %d: duplicate city id %q", CitiesFile, lineNo, f[0])
		}
		out[f[0]] = City{
			ID:              f[0],
			Name:            f[1],
			Region:          f[2],
			FederalDistrict: f[3],
			Latitude:        lat,
			Longitude:       lon,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseRanges reads cidr_optim.txt: istart, iend, "start - end", status,
// city id or "-". City attributes are joined from cities.
func ParseRanges(r io.Reader, charset string, cities map[string]City) ([]ranges.Record, error) {
	type key struct{ s, e uint32 }
	seen := map[key]int{}

	var out []ranges.Record
	err := eachLine(r, charset, func(lineNo int, f []string) error {
		if len(f) < 5 {
			return fmt.Errorf("%s line %d: want 5 fields, got %d", RangesFile, lineNo, len(f))
		}
		istart, err := strconv.ParseUint(f[0], 10, 32)
		if err != nil {
			return fmt.Errorf("%s line %d: istart: %w", RangesFile, lineNo, err)
		}
		iend, err := strconv.ParseUint(f[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%s line %d: iend: %w", RangesFile, lineNo, err)
		}
		if istart > iend {
			return fmt.Errorf("%s line %d: %w", RangesFile, lineNo, ranges.ErrInvalidRange)
		}
		k := key{uint32(istart), uint32(iend)}
		if prev, dup := seen[k]; dup {
			return fmt.Errorf("%s line %d: duplicate range (first seen on line %d)", RangesFile, lineNo, prev)
		}
		seen[k] = lineNo

		rec := ranges.Record{IStart: k.s, IEnd: k.e}
		if start, end, ok := strings.Cut(f[2], "-"); ok {
			rec.Start = strings.TrimSpace(start)
			rec.End = strings.TrimSpace(end)
		}
		if f[3] != "" {
			status := f[3]
			rec.Status = &status
		}
		if id := f[4]; id != noCity {
			c, ok := cities[id]
			if !ok {
				return fmt.Errorf("%s line %d: unknown city id %q", RangesFile, lineNo, id)
			}
			rec.City = &c.Name
			rec.Region = &c.Region
			rec.FederalDistrict = &c.FederalDistrict
			rec.Latitude = &c.Latitude
			rec.Longitude = &c.Longitude
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Parse decodes both members of a distribution into range records.
func Parse(files Files, charset string) ([]ranges.Record, int, error) {
	cities, err := ParseCities(bytes.NewReader(files.Cities), charset)
	if err != nil {
		return nil, 0, err
	}
	recs, err := ParseRanges(bytes.NewReader(files.Ranges), charset, cities)
	if err != nil {
		return nil, 0, err
	}
	return recs, len(cities), nil
}
