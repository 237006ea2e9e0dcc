package ingest

import (
	"strings"

	"github.com/guregu/null/v5"

	"github.com/upcrm/forms-transport/core/db/models"
)

// Mapped holds canonical attribute values produced by mapping rules.
// An invalid null.String marks an explicit null: the rule matched but the
// payload value was empty after trimming. Absent keys mean the rule was
// skipped because the payload lacked its source field.
type Mapped map[models.CanonicalField]null.String

// Get returns the mapped value for a field, empty when null or absent.
func (m Mapped) Get(field models.CanonicalField) string {
	return m[field].ValueOrZero()
}

// ApplyMappings runs the connector's mapping rules over a normalized
// payload. Rules whose source key is missing from the payload are skipped
// silently, third-party forms commonly omit optional fields.
func ApplyMappings(payload map[string]string, rules models.MappingRulesColumn) Mapped {
	mapped := Mapped{}

	for _, rule := range rules {
		if !rule.TargetField.Valid() {
			continue
		}

		raw, ok := payload[rule.SourceKey]
		if !ok {
			continue
		}

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			mapped[rule.TargetField] = null.String{}
			continue
		}
		mapped[rule.TargetField] = null.StringFrom(trimmed)
	}

	return mapped
}

// MergeTags unions payload tags with the connector's default tag set,
// deduplicated. Order is not significant.
func MergeTags(payloadTags, defaults models.StringArray) models.StringArray {
	merged := models.StringArray{}
	seen := map[string]bool{}

	for _, source := range []models.StringArray{payloadTags, defaults} {
		for _, tag := range source {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			merged = append(merged, tag)
		}
	}

	return merged
}
