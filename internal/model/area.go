package model

// AreaUnit is the unit code clients send with an energy estimate request.
type AreaUnit int

const (
	UnitHectare     AreaUnit = 1
	UnitAcre        AreaUnit = 2
	UnitSquareMeter AreaUnit = 3
)

// Conversion factors to square meters.
const (
	SquareMetersPerHectare = 10000.0
	SquareMetersPerAcre    = 4046.85642
)

// AreaUnitFromFloat maps the numeric unit code to an AreaUnit.
// Anything that is not exactly 1 or 2 is treated as square meters.
func AreaUnitFromFloat(u float64) AreaUnit {
	switch u {
	case 1:
		return UnitHectare
	case 2:
		return UnitAcre
	default:
		return UnitSquareMeter
	}
}

// ToSquareMeters converts area in the given unit to square meters.
func ToSquareMeters(area float64, unit AreaUnit) float64 {
	switch unit {
	case UnitHectare:
		return area * SquareMetersPerHectare
	case UnitAcre:
		return area * SquareMetersPerAcre
	default:
		return area
	}
}

func (u AreaUnit) String() string {
	switch u {
	case UnitHectare:
		return "hectare"
	case UnitAcre:
		return "acre"
	default:
		return "square_meter"
	}
}
