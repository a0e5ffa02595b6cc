package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/overunder/overunder/pkg/constants"
)

// UseLogger returns the request-scoped logger from the context, falling
// back to the standard logger for code running outside a request.
func UseLogger(ctx context.Context) logrus.FieldLogger {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger.(logrus.FieldLogger)
}
