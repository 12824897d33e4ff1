package naming

import (
	"fmt"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

// ValidateLabel checks that name is usable as a cluster object name.
func ValidateLabel(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid name %q: %s", name, strings.Join(errs, ", "))
	}
	return nil
}

// ValidatePortName checks a container or service port name.
func ValidatePortName(name string) error {
	if errs := utilvalidation.IsValidPortName(name); len(errs) > 0 {
		return fmt.Errorf("invalid port name %q: %s", name, strings.Join(errs, ", "))
	}
	return nil
}

// ValidateLabelValue checks that value is usable as a cluster label value.
func ValidateLabelValue(value string) error {
	if errs := utilvalidation.IsValidLabelValue(value); len(errs) > 0 {
		return fmt.Errorf("invalid label value %q: %s", value, strings.Join(errs, ", "))
	}
	return nil
}
