package model

import "fmt"

// Crop types, soil types, irrigation types, and seasons recognized by the generator.
var (
	CropTypes       = []string{"Wheat", "Rice", "Maize", "Cotton", "Sugarcane"}
	SoilTypes       = []string{"Loamy", "Sandy", "Clay", "Alluvial", "Black"}
	IrrigationTypes = []string{"Canal", "Tube-well", "Rain-fed", "Drip"}
	Seasons         = []string{"Kharif", "Rabi", "Zaid"}
)

// FertileSoils are the soil types that can be labeled suitable.
var FertileSoils = map[string]bool{
	"Loamy":    true,
	"Alluvial": true,
	"Black":    true,
}

// BaseYield is the expected yield in tons per acre for each crop type.
var BaseYield = map[string]float64{
	"Wheat":     3.0,
	"Rice":      4.5,
	"Maize":     3.8,
	"Cotton":    2.5,
	"Sugarcane": 6.0,
}

// Suitability labels.
const (
	LabelSuitable    = "Suitable"
	LabelNotSuitable = "Not Suitable"
)

// Raw dataset column headers, in file order.
const (
	ColFarmID      = "Farm_ID"
	ColCropType    = "Crop_Type"
	ColFarmArea    = "Farm_Area(acres)"
	ColIrrigation  = "Irrigation_Type"
	ColFertilizer  = "Fertilizer_Used(tons)"
	ColPesticide   = "Pesticide_Used(kg)"
	ColYield       = "Yield(tons)"
	ColSoilType    = "Soil_Type"
	ColSeason      = "Season"
	ColWaterUsage  = "Water_Usage(cubic meters)"
	ColSuitability = "Suitability"
)

// DatasetColumns is the ordered header of a generated dataset.
var DatasetColumns = []string{
	ColFarmID,
	ColCropType,
	ColFarmArea,
	ColIrrigation,
	ColFertilizer,
	ColPesticide,
	ColYield,
	ColSoilType,
	ColSeason,
	ColWaterUsage,
	ColSuitability,
}

// FarmRecord is one farm-season observation.
type FarmRecord struct {
	FarmID         string  `json:"farm_id"`
	CropType       string  `json:"crop_type"`
	FarmArea       float64 `json:"farm_area_acres"`
	IrrigationType string  `json:"irrigation_type"`
	Fertilizer     float64 `json:"fertilizer_used_tons"`
	Pesticide      float64 `json:"pesticide_used_kg"`
	Yield          float64 `json:"yield_tons"`
	SoilType       string  `json:"soil_type"`
	Season         string  `json:"season"`
	WaterUsage     float64 `json:"water_usage_cubic_meters"`
	Suitability    string  `json:"suitability"`
}

// FarmID formats the identifier for the i-th generated record (1-based).
func FarmID(i int) string {
	return fmt.Sprintf("FARM_%04d", i)
}

// IsSuitable applies the suitability heuristic to a record's own fields.
// A zero farm area is never suitable.
func IsSuitable(r FarmRecord) bool {
	if r.FarmArea <= 0 {
		return false
	}
	return FertileSoils[r.SoilType] &&
		r.WaterUsage > 500 &&
		r.Fertilizer >= 0.5 &&
		r.Yield/r.FarmArea > 2.0
}

// SuitabilityLabel maps the suitability rule result to its string label.
func SuitabilityLabel(suitable bool) string {
	if suitable {
		return LabelSuitable
	}
	return LabelNotSuitable
}
