package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var space = regexp.MustCompile(`\s+`)

// Pluralize returns the count followed by the noun, in plural form unless
// count is one.
func Pluralize(count int, singular string) string {
	if count != 1 {
		if singular == "index" {
			singular = "indices"
		} else if strings.HasSuffix(singular, "ch") {
			singular = singular + "es"
		} else {
			singular = singular + "s"
		}
	}
	return fmt.Sprintf("%d %s", count, singular)
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case time.Time:
		return s.Format(time.RFC3339Nano)
	case []byte:
		return string(s)
	}
	str, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return str
}
