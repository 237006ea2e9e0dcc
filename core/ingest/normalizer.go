package ingest

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/goccy/go-json"

	"github.com/upcrm/forms-transport/core/errorutil"
	"github.com/upcrm/forms-transport/core/logger"
)

// Normalization errors. All map to a 400 response.
var (
	ErrBodyNotJSON            = &errorutil.ValidationError{Msg: "body is not valid JSON"}
	ErrMalformedFormBody      = &errorutil.ValidationError{Msg: "malformed form body"}
	ErrUnsupportedContentType = &errorutil.ValidationError{Msg: "unsupported content type: expected JSON or form data"}
)

const maxBodySize = 1 << 20 // 1 MiB

// Normalize reduces a webhook request body to a flat key-value map,
// regardless of whether the third party sent JSON, url-encoded or
// multipart form data. It has no side effects: a failed normalization
// leaves nothing behind.
func Normalize(r *http.Request, log logger.Logger) (map[string]string, error) {
	contentType := filterFlags(r.Header.Get("Content-Type"))

	switch contentType {
	case binding.MIMEJSON:
		return normalizeJSON(r)
	case binding.MIMEPOSTForm:
		if err := r.ParseForm(); err != nil {
			return nil, ErrMalformedFormBody
		}
		return flattenValues(r.PostForm), nil
	case binding.MIMEMultipartPOSTForm:
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return nil, ErrMalformedFormBody
		}
		return flattenValues(r.MultipartForm.Value), nil
	default:
		body, _ := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		log.Warn("webhook with unsupported content type",
			logger.Body(string(body)),
			logger.Err(ErrUnsupportedContentType))
		return nil, ErrUnsupportedContentType
	}
}

func normalizeJSON(r *http.Request) (map[string]string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, ErrBodyNotJSON
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, ErrBodyNotJSON
	}

	result := make(map[string]string, len(decoded))
	for key, value := range decoded {
		result[key] = coerceString(value)
	}
	return result, nil
}

func flattenValues(values map[string][]string) map[string]string {
	result := make(map[string]string, len(values))
	for key, items := range values {
		if len(items) > 0 {
			result[key] = items[0]
		}
	}
	return result
}

// coerceString renders a decoded JSON value as a string. Compound values
// are re-encoded so array-valued fields (tags) survive the flattening.
func coerceString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// filterFlags strips content-type parameters such as "; charset=utf-8".
func filterFlags(content string) string {
	if i := strings.IndexAny(content, "; "); i != -1 {
		return content[:i]
	}
	return content
}
