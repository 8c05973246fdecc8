package domain

import "strings"

// Schema is a category's fixed ordered column list. The first line of every
// shard file is this schema joined by the delimiter, present even when the
// shard receives zero data rows
type Schema []string

// HeaderLine renders the schema as a shard file header row
func (s Schema) HeaderLine(delim byte) string {
	return strings.Join(s, string(delim))
}

// SchemaFor returns the fixed schema for a category
func SchemaFor(c Category) Schema {
	switch c {
	case CategoryMaster:
		return masterSchema
	case CategoryPatient:
		return patientSchema
	case CategoryDevice:
		return deviceSchema
	case CategoryText:
		return textSchema
	}
	return nil
}

// The patient and foitext source files ship without header rows, so their
// schemas are maintained here; the mdrfoi and foidev schemas mirror the
// headers the source carries, lower-cased
var (
	patientSchema = Schema{
		"mdr_report_key",
		"patient_sequence_number",
		"date_received",
		"sequence_number_treatment",
		"sequence_number_outcome",
	}

	textSchema = Schema{
		"mdr_report_key",
		"mdr_text_key",
		"text_type_code",
		"patient_sequence_number",
		"date_report",
		"text",
	}

	deviceSchema = Schema{
		"mdr_report_key",
		"device_event_key",
		"implant_flag",
		"date_removed_flag",
		"device_sequence_number",
		"date_received",
		"brand_name",
		"generic_name",
		"manufacturer_d_name",
		"manufacturer_d_address_1",
		"manufacturer_d_address_2",
		"manufacturer_d_city",
		"manufacturer_d_state",
		"manufacturer_d_zip_code",
		"manufacturer_d_zip_code_ext",
		"manufacturer_d_country",
		"manufacturer_d_postal_code",
		"expiration_date_of_device",
		"model_number",
		"catalog_number",
		"lot_number",
		"other_id_number",
		"device_operator",
		"device_availability",
		"date_returned_to_manufacturer",
		"device_report_product_code",
		"device_age_text",
		"device_evaluated_by_manufacturer",
		"baseline_brand_name",
		"baseline_generic_name",
		"baseline_model_number",
		"baseline_catalog_number",
		"baseline_other_id_number",
		"baseline_device_family",
		"baseline_shelf_life_contained",
		"baseline_shelf_life_in_months",
		"baseline_pma_flag",
		"baseline_pma_number",
		"baseline_510_k__flag",
		"baseline_510_k__number",
		"baseline_preamendment_flag",
		"baseline_transitional_flag",
		"baseline_510_k__exempt_flag",
		"baseline_date_first_marketed",
		"baseline_date_ceased_marketing",
	}

	masterSchema = Schema{
		"mdr_report_key",
		"event_key",
		"report_number",
		"report_source_code",
		"manufacturer_link_flag",
		"number_devices_in_event",
		"number_patients_in_event",
		"date_received",
		"adverse_event_flag",
		"product_problem_flag",
		"date_report",
		"date_of_event",
		"reprocessed_and_reused_flag",
		"reporter_occupation_code",
		"health_professional",
		"initial_report_to_fda",
		"distributor_name",
		"distributor_address_1",
		"distributor_address_2",
		"distributor_city",
		"distributor_state",
		"distributor_zip_code",
		"distributor_zip_code_ext",
		"date_facility_aware",
		"type_of_report",
		"report_date",
		"report_to_fda",
		"date_report_to_fda",
		"event_location",
		"report_to_manufacturer",
		"date_report_to_manufacturer",
		"manufacturer_name",
		"manufacturer_address_1",
		"manufacturer_address_2",
		"manufacturer_city",
		"manufacturer_state",
		"manufacturer_zip_code",
		"manufacturer_zip_code_ext",
		"manufacturer_country",
		"manufacturer_postal_code",
		"manufacturer_contact_t_name",
		"manufacturer_contact_f_name",
		"manufacturer_contact_l_name",
		"manufacturer_contact_address_1",
		"manufacturer_contact_address_2",
		"manufacturer_contact_city",
		"manufacturer_contact_state",
		"manufacturer_contact_zip_code",
		"manufacturer_contact_zip_ext",
		"manufacturer_contact_country",
		"manufacturer_contact_postal_code",
		"manufacturer_contact_area_code",
		"manufacturer_contact_exchange",
		"manufacturer_contact_phone_number",
		"manufacturer_contact_extension",
		"manufacturer_contact_pcountry",
		"manufacturer_contact_pcity",
		"manufacturer_contact_plocal",
		"manufacturer_g1_name",
		"manufacturer_g1_address_1",
		"manufacturer_g1_address_2",
		"manufacturer_g1_city",
		"manufacturer_g1_state",
		"manufacturer_g1_zip_code",
		"manufacturer_g1_zip_code_ext",
		"manufacturer_g1_country",
		"manufacturer_g1_postal_code",
		"source_type",
		"date_manufacturer_received",
		"device_date_of_manufacturer",
		"single_use_flag",
		"remedial_action",
		"previous_use_code",
		"removal_correction_number",
		"event_type",
	}
)
