package ranges

// Record is one address block of the range table.
// IStart and IEnd are inclusive and form the primary key.
type Record struct {
	IStart          uint32   `json:"istart"`
	IEnd            uint32   `json:"iend"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Status          *string  `json:"status,omitempty"`
	City            *string  `json:"city,omitempty"`
	Region          *string  `json:"region,omitempty"`
	FederalDistrict *string  `json:"federal_district,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	InUpdate        bool     `json:"in_update"`
}

// Width is the number of addresses in the block minus one.
func (r Record) Width() uint32 {
	return r.IEnd - r.IStart
}

// Contains reports whether p lies inside the block.
func (r Record) Contains(p uint32) bool {
	return r.IStart <= p && p <= r.IEnd
}

// Patch is a partial update. Nil fields are left unchanged unless
// ClearMissing is set, in which case nil optional attributes become NULL.
type Patch struct {
	Start           *string  `json:"start,omitempty"`
	End             *string  `json:"end,omitempty"`
	Status          *string  `json:"status,omitempty"`
	City            *string  `json:"city,omitempty"`
	Region          *string  `json:"region,omitempty"`
	FederalDistrict *string  `json:"federal_district,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	InUpdate        *bool    `json:"in_update,omitempty"`

	ClearMissing bool `json:"-"`
}

// PatchFrom builds a patch that overwrites every attribute of r and clears
// the in_update marker. Used by the refresh merge.
func PatchFrom(r Record) Patch {
	start, end := r.Start, r.End
	if start == "" {
		start = formatAddr(r.IStart)
	}
	if end == "" {
		end = formatAddr(r.IEnd)
	}
	inUpdate := false
	return Patch{
		Start:           &start,
		End:             &end,
		Status:          r.Status,
		City:            r.City,
		Region:          r.Region,
		FederalDistrict: r.FederalDistrict,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		InUpdate:        &inUpdate,
		ClearMissing:    true,
	}
}

type assignment struct {
	column string
	value  any
}

func (p Patch) assignments() []assignment {
	var out []assignment
	add := func(col string, v any, set bool) {
		if set || p.ClearMissing {
			out = append(out, assignment{column: col, value: v})
		}
	}
	if p.Start != nil {
		add(colStart, *p.Start, true)
	}
	if p.End != nil {
		add(colEnd, *p.End, true)
	}
	add(colStatus, nullableString(p.Status), p.Status != nil)
	add(colCity, nullableString(p.City), p.City != nil)
	add(colRegion, nullableString(p.Region), p.Region != nil)
	add(colFederalDistrict, nullableString(p.FederalDistrict), p.FederalDistrict != nil)
	add(colLatitude, nullableFloat(p.Latitude), p.Latitude != nil)
	add(colLongitude, nullableFloat(p.Longitude), p.Longitude != nil)
	if p.InUpdate != nil {
		add(colInUpdate, *p.InUpdate, true)
	}
	return out
}

// Column names of the range table.
const (
	colIStart          = "istart"
	colIEnd            = "iend"
	colStart           = "start"
	colEnd             = "end"
	colStatus          = "status"
	colCity            = "city"
	colRegion          = "region"
	colFederalDistrict = "federal_district"
	colLatitude        = "latitude"
	colLongitude       = "longitude"
	colInUpdate        = "in_update"
)

// Columns lists the table columns in insert order.
var Columns = []string{
	colIStart, colIEnd, colStart, colEnd, colStatus,
	colCity, colRegion, colFederalDistrict,
	colLatitude, colLongitude, colInUpdate,
}

func (r Record) values() []any {
	return []any{
		int64(r.IStart), int64(r.IEnd), r.Start, r.End,
		nullableString(r.Status), nullableString(r.City),
		nullableString(r.Region), nullableString(r.FederalDistrict),
		nullableFloat(r.Latitude), nullableFloat(r.Longitude),
		r.InUpdate,
	}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
