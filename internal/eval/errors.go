package eval

import (
	"fmt"

	"github.com/park285/primordia/internal/domain"
)

func rangeError(field string, v, min, max float64) error {
	return &domain.ValidationError{
		Field:  "evaluation." + field,
		Value:  v,
		Reason: fmt.Sprintf("must be within [%g, %g]", min, max),
	}
}
