package catalog

func unit(s string) *string { return &s }

// SoilGrids returns the ISRIC SoilGrids 2.0 product table.
func SoilGrids() *Catalog {
	return New(
		Product{Code: "soc", Description: "Soil organic carbon content", Unit: unit("dg/kg")},
		Product{Code: "bdod", Description: "Bulk density", Unit: unit("cg/cm³")},
		Product{Code: "clay", Description: "Clay content", Unit: unit("g/kg")},
		Product{Code: "wrb", Description: "WRB classes and probabilities"},
		Product{Code: "cec", Description: "Cation exchange capacity at ph 7", Unit: unit("mmol(c)/kg")},
		Product{Code: "cfvo", Description: "Coarse fragments volumetric", Unit: unit("cm3/dm3 (vol‰)")},
		Product{Code: "nitrogen", Description: "Nitrogen", Unit: unit("cg/kg")},
		Product{Code: "phh2o", Description: "Soil pH in H2O", Unit: unit("pHx10")},
		Product{Code: "sand", Description: "Sand content", Unit: unit("g/kg")},
		Product{Code: "silt", Description: "Silt content", Unit: unit("g/kg")},
		Product{Code: "ocs", Description: "Soil organic carbon stock", Unit: unit("t/ha")},
		Product{Code: "ocd", Description: "Organic carbon densities", Unit: unit("hg/m³")},
	)
}
