package access

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/spf13/viper"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// DefaultPolicy builds the policy shipped with the portal.
func DefaultPolicy() (*Policy, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultPolicy)); err != nil {
		return nil, fmt.Errorf("read default access policy: %w", err)
	}
	return decode(v)
}

// LoadPolicy reads a policy document from path. An empty path falls back
// to the built-in policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read access policy %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Policy, error) {
	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access policy: %w", err)
	}
	policy, err := NewPolicy(def)
	if err != nil {
		return nil, fmt.Errorf("invalid access policy: %w", err)
	}
	return policy, nil
}
