package query

import (
	"errors"
	"fmt"
)

// IDLength is the length of a stored description identifier
const IDLength = 24

// ErrInvalidID is returned for identifiers of the wrong length
var ErrInvalidID = errors.New("invalid description id")

// ValidateID checks a stored description identifier. The identifier is
// opaque; only its length is checked.
func ValidateID(id string) error {
	if len(id) != IDLength {
		return fmt.Errorf("%w: id needs to be %d characters long, got %d", ErrInvalidID, IDLength, len(id))
	}
	return nil
}
