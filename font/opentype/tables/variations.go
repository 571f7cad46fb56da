package tables

// Coord is a single variation-axis coordinate in 2.14 fixed-point F2Dot14
// units, the representation the ItemVariationStore deltas are interpolated
// in (spec §4.8's static-axis-coordinate scope: no animation, just resolving
// deltas for one fixed set of coordinates).
type Coord = float32

// VariationAxisRecord is one entry of fvar: the axis tag and its minimum,
// default and maximum values.
type VariationAxisRecord struct {
	Tag                    Tag
	MinValue, DefaultValue, MaxValue float32
}

// RegionAxisCoordinates is one axis's peak/start/end triple within an
// ItemVariationStore variation region.
type RegionAxisCoordinates struct {
	StartCoord, PeakCoord, EndCoord float32
}

// VariationRegion is the full set of per-axis tents defining one region of
// the variation space.
type VariationRegion struct {
	Axes []RegionAxisCoordinates
}

// ItemVariationData is one subtable of deltas, sharing the regions list
// named by its RegionIndexes.
type ItemVariationData struct {
	RegionIndexes []uint16
	DeltaSets     [][]int32 // DeltaSets[itemIndex][regionIndexes position]
}

// ItemVarStore is HVAR/MVAR/GDEF's shared ItemVariationStore: a list of
// variation regions plus, per item, the delta contributed by each region at
// a given set of normalized axis coordinates.
type ItemVarStore struct {
	Regions []VariationRegion
	Datas   []ItemVariationData
}

// regionScalar computes how much a region contributes at coords, the
// standard OpenType tent-function interpolation.
func regionScalar(r VariationRegion, coords []Coord) float32 {
	scalar := float32(1.0)
	for i, axis := range r.Axes {
		var v float32
		if i < len(coords) {
			v = coords[i]
		}
		switch {
		case axis.PeakCoord == 0:
			continue
		case v == axis.PeakCoord:
			continue
		case v <= axis.StartCoord || v >= axis.EndCoord:
			return 0
		case v < axis.PeakCoord:
			if axis.PeakCoord == axis.StartCoord {
				continue
			}
			scalar *= (v - axis.StartCoord) / (axis.PeakCoord - axis.StartCoord)
		default:
			if axis.PeakCoord == axis.EndCoord {
				continue
			}
			scalar *= (axis.EndCoord - v) / (axis.EndCoord - axis.PeakCoord)
		}
	}
	return scalar
}

// GetDelta returns the interpolated delta for (outerIndex, innerIndex) at
// coords, 0 if either index is out of range (a malformed or absent
// variation store should never panic the shaper).
func (s ItemVarStore) GetDelta(outerIndex, innerIndex uint16, coords []Coord) float32 {
	if int(outerIndex) >= len(s.Datas) {
		return 0
	}
	data := s.Datas[outerIndex]
	if int(innerIndex) >= len(data.DeltaSets) {
		return 0
	}
	deltaSet := data.DeltaSets[innerIndex]
	var total float32
	for i, regionIdx := range data.RegionIndexes {
		if i >= len(deltaSet) || int(regionIdx) >= len(s.Regions) {
			continue
		}
		scalar := regionScalar(s.Regions[regionIdx], coords)
		if scalar != 0 {
			total += scalar * float32(deltaSet[i])
		}
	}
	return total
}

// VarValueRecord is one MVAR value-tag-to-variation mapping.
type VarValueRecord struct {
	ValueTag             Tag
	OuterIndex, InnerIndex uint16
}

// Device is the classic (non-variable) OpenType Device table: per-ppem-size
// deltas, used when a font has no variation store, or as a fallback when a
// VariationIndex device record has no matching entry.
type Device struct {
	StartSize, EndSize uint16
	DeltaValues        []int8
}

// GetDelta returns the hinted delta for the given pixels-per-em, 0 outside
// [StartSize, EndSize].
func (d Device) GetDelta(ppem uint16) int32 {
	if ppem < d.StartSize || ppem > d.EndSize || len(d.DeltaValues) == 0 {
		return 0
	}
	return int32(d.DeltaValues[ppem-d.StartSize])
}

// DeviceOrVariation is a ValueRecord/Anchor device field: either a classic
// per-ppem Device table or a VariationIndex into an ItemVarStore. The zero
// value means "absent".
type DeviceOrVariation struct {
	Device                         *Device
	IsVariation                    bool
	OuterIndex, InnerIndex         uint16
}
