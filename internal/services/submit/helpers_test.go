package submit

import (
	"errors"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/common"
)

func asError[T any](err error, target *T) bool {
	return errors.As(err, target)
}

func testLogger() arbor.ILogger {
	return common.GetLogger()
}
