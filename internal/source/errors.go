package source

import "fmt"

// extractionErr builds an ErrExtraction-wrapping error tagged with the
// failing resource id.
func extractionErr(resourceID, format string, args ...any) error {
	return fmt.Errorf("%w: resource %q: %s", ErrExtraction, resourceID, fmt.Sprintf(format, args...))
}
