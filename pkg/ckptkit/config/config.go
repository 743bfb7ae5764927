package config

// Config holds decoded checkpoint settings and hands them out through
// typed accessors. A missing key, or a value of the wrong type, yields
// the caller's default instead of an error; construction-time
// validation of the assembled options happens downstream.
type Config struct {
	data map[string]any
}

// New wraps a settings map. A nil map behaves as an empty one.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// Section returns the nested map under key as its own Config, so
// checkpoint settings can live in one block of a larger application
// config file. A missing or non-map value yields an empty Config.
func (c Config) Section(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// String returns the string under key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean under key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer under key, or defaultVal. JSON decodes
// numbers as float64, so whole floats convert; a fractional value does
// not silently truncate to a worker or retention count.
func (c Config) Int(key string, defaultVal int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Float returns the float under key, or defaultVal. Integer values
// convert, so a threshold written as "1" reads back as 1.0.
func (c Config) Float(key string, defaultVal float64) float64 {
	switch v := c.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultVal
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}
