package variables

import "fmt"

// InputMappingError indicates a raw header key or column name that matches no
// vocabulary entry while map failures are not allowed.
type InputMappingError struct {
	Name string
}

func (e *InputMappingError) Error() string {
	return fmt.Sprintf("could not find mapping for %s", e.Name)
}
