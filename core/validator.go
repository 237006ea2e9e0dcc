package core

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/upcrm/forms-transport/core/db/models"
)

// initValidator registers the `canonicalfield` validation for gin binding.
func initValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("canonicalfield", validateCanonicalField); err != nil {
			panic("cannot register canonical field validator: " + err.Error())
		}
	}
}

// validateCanonicalField accepts only known mapping targets.
func validateCanonicalField(fl validator.FieldLevel) bool {
	return models.CanonicalField(fl.Field().String()).Valid()
}

// duplicateMappingTarget returns the first canonical field which appears
// in more than one rule, if any. Duplicate targets would make the applied
// mapping order-dependent, so they are rejected at write time.
func duplicateMappingTarget(rules []models.MappingRule) (models.CanonicalField, bool) {
	seen := map[models.CanonicalField]bool{}
	for _, rule := range rules {
		if seen[rule.TargetField] {
			return rule.TargetField, true
		}
		seen[rule.TargetField] = true
	}
	return "", false
}
