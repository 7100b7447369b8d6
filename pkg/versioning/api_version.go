package versioning

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/pkg/constants"
)

// Current is the newest API version the server speaks
var Current = APIVersion{Major: 1, Minor: 0}

type APIVersion struct {
	Major int
	Minor int
}

func (v APIVersion) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// ParseVersion "v1.2" -> APIVersion{1, 2}
func ParseVersion(header string) APIVersion {
	if header == "" {
		return Current
	}

	clean := strings.TrimPrefix(strings.TrimSpace(header), "v")
	parts := strings.Split(clean, ".")

	major := 1
	minor := 0

	if len(parts) > 0 {
		if v, err := strconv.Atoi(parts[0]); err == nil {
			major = v
		}
	}
	if len(parts) > 1 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			minor = v
		}
	}

	return APIVersion{Major: major, Minor: minor}
}

// Middleware reads X-API-Version, rejects majors the server does not speak
// and stores the version in the gin context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		version := ParseVersion(c.GetHeader(constants.HeaderAPIVersion))
		if version.Major != Current.Major {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				constants.ResponseError: "unsupported API version " + version.String(),
				constants.FieldCode:     "UNSUPPORTED_VERSION",
			})
			return
		}
		c.Set(constants.ContextKeyAPIVersion, version)
		c.Header(constants.HeaderAPIVersion, Current.String())
		c.Next()
	}
}

// FromContext returns the version stored by Middleware, or Current
func FromContext(c *gin.Context) APIVersion {
	if v, ok := c.Get(constants.ContextKeyAPIVersion); ok {
		if version, ok := v.(APIVersion); ok {
			return version
		}
	}
	return Current
}
