package ports

// ConfigParser decodes a configuration document into a generic map.
type ConfigParser interface {
	// Parse unmarshals data into a map of top-level keys.
	Parse(data []byte) (map[string]any, error)
}
