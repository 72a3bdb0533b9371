package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDataPorts resolves the several shapes `data_ports` may take in the
// YAML: a single number, a list of numbers, a "min-max" range string, or
// 0 meaning "pick automatically". Grounded on _parse_port_range.
func ParseDataPorts(raw interface{}) ([]int, error) {
	if raw == nil {
		return []int{0}, nil
	}
	switch v := raw.(type) {
	case int:
		return []int{v}, nil
	case []interface{}:
		ports := make([]int, 0, len(v))
		for _, elem := range v {
			n, err := toInt(elem)
			if err != nil {
				return nil, err
			}
			ports = append(ports, n)
		}
		return ports, nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return []int{n}, nil
		}
		return parsePortRangeString(v)
	default:
		return nil, fmt.Errorf("config: unsupported data_ports value %v (%T)", raw, raw)
	}
}

func parsePortRangeString(s string) ([]int, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("config: invalid data_ports range %q", s)
	}
	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("config: invalid data_ports range %q: %w", s, err)
	}
	max, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, fmt.Errorf("config: invalid data_ports range %q: %w", s, err)
	}
	ports := make([]int, 0, max-min+1)
	for p := min; p <= max; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("config: expected a port number, got %v (%T)", v, v)
	}
}
