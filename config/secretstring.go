package config

// SecretStringValue replaces actual secret whenever it is printed, logged or
// dumped.
const SecretStringValue = "<secret>"

// SecretString holds credentials, such as detection service API key. Actual
// value is only available through Value.
type SecretString string

func (s SecretString) masked() any {
	if len(s) == 0 {
		return nil
	}
	return SecretStringValue
}

// MarshalJSON hides actual value, empty secret becomes null.
func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte(`"` + SecretStringValue + `"`), nil
}

// MarshalYAML hides actual value, empty secret is omitted.
func (s SecretString) MarshalYAML() (any, error) {
	return s.masked(), nil
}

// String hides actual value when secret is printed or logged.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

// IsSet reports whether secret has been configured.
func (s SecretString) IsSet() bool {
	return len(s) != 0
}

// Value returns actual secret.
func (s SecretString) Value() string {
	return string(s)
}
