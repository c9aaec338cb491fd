package callbacks

import (
	"fmt"
	"strconv"
)

// IntParam parses a decoded parameter as int.
func IntParam(params map[string]string, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("callbacks: parameter %q not present", key)
	}
	return strconv.Atoi(v)
}
