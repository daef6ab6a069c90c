package conf

import "fmt"

// EnvironmentEnum deployment environment
type EnvironmentEnum int

const (
	LocalEnvironmentEnum EnvironmentEnum = iota
	DevnetEnvironmentEnum
	TestnetEnvironmentEnum
	MainnetEnvironmentEnum
)

// SystemEnvironmentEnum current environment, set from the --env flag
var SystemEnvironmentEnum = MainnetEnvironmentEnum

// ConfigPath explicit config file path; overrides the environment default when set
var ConfigPath string

// ParseEnvironment maps an --env value to its enum
func ParseEnvironment(env string) (EnvironmentEnum, error) {
	switch env {
	case "loc", "local":
		return LocalEnvironmentEnum, nil
	case "dev", "devnet":
		return DevnetEnvironmentEnum, nil
	case "testnet":
		return TestnetEnvironmentEnum, nil
	case "mainnet", "":
		return MainnetEnvironmentEnum, nil
	default:
		return MainnetEnvironmentEnum, fmt.Errorf("unknown environment: %s", env)
	}
}

// GetYaml returns the config file for the current environment
func GetYaml() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	switch SystemEnvironmentEnum {
	case LocalEnvironmentEnum:
		return "./conf/conf_loc.yaml"
	case DevnetEnvironmentEnum:
		return "./conf/conf_dev.yaml"
	case TestnetEnvironmentEnum:
		return "./conf/conf_test.yaml"
	default:
		return "./conf/conf_pro.yaml"
	}
}
