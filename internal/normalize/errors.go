package normalize

import "fmt"

// ErrMalformedRecord indicates a record's payload is missing a field its
// kind's processor requires (spec §7 bucket 3).
type ErrMalformedRecord struct {
	Kind  string
	Name  string
	Field string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("normalize: %s %q missing field %q", e.Kind, e.Name, e.Field)
}
