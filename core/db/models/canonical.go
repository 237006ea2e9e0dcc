package models

// CanonicalField is one of the fixed Contact attributes external form fields
// may be mapped onto.
type CanonicalField string

const (
	FieldName       CanonicalField = "nombre"
	FieldSurname    CanonicalField = "apellidos"
	FieldEmail      CanonicalField = "email"
	FieldPhone      CanonicalField = "telefono"
	FieldCompany    CanonicalField = "empresa"
	FieldAddress    CanonicalField = "direccion"
	FieldLocality   CanonicalField = "localidad"
	FieldRegion     CanonicalField = "provincia"
	FieldCountry    CanonicalField = "pais"
	FieldPostalCode CanonicalField = "cp"
	FieldBirthdate  CanonicalField = "fecha_nacimiento"
	FieldTags       CanonicalField = "tags"
)

// CanonicalFields lists every accepted mapping target.
var CanonicalFields = []CanonicalField{
	FieldName,
	FieldSurname,
	FieldEmail,
	FieldPhone,
	FieldCompany,
	FieldAddress,
	FieldLocality,
	FieldRegion,
	FieldCountry,
	FieldPostalCode,
	FieldBirthdate,
	FieldTags,
}

// Valid reports whether f is an accepted mapping target.
func (f CanonicalField) Valid() bool {
	for _, known := range CanonicalFields {
		if f == known {
			return true
		}
	}
	return false
}

// MappingRule binds a third-party payload key to a canonical Contact field.
type MappingRule struct {
	SourceKey   string         `json:"externalField" binding:"required"`
	TargetField CanonicalField `json:"canonicalField" binding:"required,canonicalfield"`
}
