package constants

type ContextKey string

const (
	AppKey       ContextKey = "app"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
)
