package logger

import "go.uber.org/zap"

const (
	HandlerAttr    = "handler"
	ConnectorAttr  = "connector"
	HTTPMethodAttr = "httpMethod"
	HTTPStatusAttr = "httpStatusCode"
	ErrorAttr      = "error"
	BodyAttr       = "body"
	FormIDAttr     = "formId"
	PageIDAttr     = "pageId"
	LeadIDAttr     = "leadId"
	UserIDAttr     = "userId"
)

// Err returns an error attribute. Nil errors produce an empty value
// instead of a panic.
func Err(err any) zap.Field {
	if err == nil {
		return zap.String(ErrorAttr, "<nil>")
	}
	return zap.Any(ErrorAttr, err)
}

// Body returns a body attribute with the value truncated to a sane size.
func Body(value string) zap.Field {
	const limit = 512
	if len(value) > limit {
		value = value[:limit] + "..."
	}
	return zap.String(BodyAttr, value)
}
