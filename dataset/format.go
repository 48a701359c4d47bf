package dataset

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// FormatValue renders a value of column type t as the string used in partition paths, catalog
// partition values and delimited output. Null renders as the empty string.
func FormatValue(t Type, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []byte:
		return hex.EncodeToString(val)
	case time.Time:
		if t == Date {
			return val.UTC().Format(DateLayout)
		}
		return val.UTC().Format(TimestampLayout)
	default:
		return fmt.Sprint(val)
	}
}
