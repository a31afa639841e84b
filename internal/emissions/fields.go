package emissions

// Emission rows carry a long tail of optional measurement fields. The
// API accepts a flat JSON object and only allowlisted fields reach the
// store; anything else is rejected up front.

type fieldType int

const (
	fieldText fieldType = iota
	fieldNumber
)

type fieldSpec struct {
	column string
	typ    fieldType
}

var emissionFields = map[string]fieldSpec{
	"sourceStreamName": {"source_stream_name", fieldText},
	"technologyType":   {"technology_type", fieldText},
	"emissionTypeId":   {"emission_type_id", fieldText},
	"emissionMethodId": {"emission_method_id", fieldText},
	"emissionMethod2Id": {"emission_method2_id", fieldText},
	"emissionMethod3Id": {"emission_method3_id", fieldText},
	"typeOfGhgId":       {"type_of_ghg_id", fieldText},

	// Activity data and units.
	"adActivityData":        {"ad_activity_data", fieldNumber},
	"adUnitId":              {"ad_unit_id", fieldText},
	"ncvNetCalorificValue":  {"ncv_net_calorific_value", fieldNumber},
	"ncvUnitId":             {"ncv_unit_id", fieldText},
	"efEmissionFactor":      {"ef_emission_factor", fieldNumber},
	"efUnitId":              {"ef_unit_id", fieldText},
	"ccCarbonContent":       {"cc_carbon_content", fieldNumber},
	"ccUnitId":              {"cc_unit_id", fieldText},
	"oxfOxidationFactor":    {"oxf_oxidation_factor", fieldNumber},
	"oxfUnitId":             {"oxf_unit_id", fieldText},
	"convfConversionFactor": {"convf_conversion_factor", fieldNumber},
	"convfUnitId":           {"convf_unit_id", fieldText},
	"biocBiomassContent":    {"bioc_biomass_content", fieldNumber},
	"biocUnitId":            {"bioc_unit_id", fieldText},

	// PFC emissions.
	"tCf4Emission":      {"t_cf4_emission", fieldNumber},
	"tC2f6Emission":     {"t_c2f6_emission", fieldNumber},
	"tCo2eGwpCf4":       {"t_co2e_gwp_cf4", fieldNumber},
	"tCo2eGwpC2f6":      {"t_co2e_gwp_c2f6", fieldNumber},
	"tCo2eCf4Emission":  {"t_co2e_cf4_emission", fieldNumber},
	"tCo2eC2f6Emission": {"t_co2e_c2f6_emission", fieldNumber},

	// CO2e totals.
	"collectionEfficiency": {"collection_efficiency", fieldNumber},
	"co2eFossil":           {"co2e_fossil", fieldNumber},
	"co2eBio":              {"co2e_bio", fieldNumber},

	// Energy content.
	"energyContentBioTJ": {"energy_content_bio_tj", fieldNumber},
	"energyContentTJ":    {"energy_content_tj", fieldNumber},

	// Measurement based approach.
	"hourlyGhgConcAverage":    {"hourly_ghg_conc_average", fieldNumber},
	"hourlyGhgConcUnitId":     {"hourly_ghg_conc_unit_id", fieldText},
	"hoursOperating":          {"hours_operating", fieldNumber},
	"hoursOperatingUnitId":    {"hours_operating_unit_id", fieldText},
	"flueGasFlowAverage":      {"flue_gas_flow_average", fieldNumber},
	"flueGasFlowUnitId":       {"flue_gas_flow_unit_id", fieldText},
	"annualAmountOfGhg":       {"annual_amount_of_ghg", fieldNumber},
	"annualAmountOfGhgUnitId": {"annual_amount_of_ghg_unit_id", fieldText},

	"gwpTco2e": {"gwp_tco2e", fieldNumber},

	// PFC slope and overvoltage coefficients.
	"aFrequency": {"a_frequency", fieldNumber},
	"aDuration":  {"a_duration", fieldNumber},
	"aSefCf4":    {"a_sef_cf4", fieldNumber},
	"bAeo":       {"b_aeo", fieldNumber},
	"bCe":        {"b_ce", fieldNumber},
	"bOvc":       {"b_ovc", fieldNumber},
	"fC2f6":      {"f_c2f6", fieldNumber},
}
