package admission

const (
	DefaultNamePrefix    = "iot_"
	DefaultNameParameter = "ThingName"
)

type Config struct {
	// NamePrefix is prepended to every derived thing name.
	NamePrefix string `mapstructure:"name_prefix" validate:"omitempty,max=32,iotname"`
	// NameParameter is the template parameter that receives the derived name.
	NameParameter string     `mapstructure:"name_parameter" validate:"required,max=128"`
	Overrides     []Override `mapstructure:"overrides" validate:"dive"`
	Policy        Policy     `mapstructure:"policy"`
}

// Override is a template parameter value forced onto every admitted device.
// Lists are used instead of maps because viper lower-cases map keys.
type Override struct {
	Name  string `mapstructure:"name" validate:"required,max=128"`
	Value string `mapstructure:"value" validate:"max=2048"`
}

type Policy struct {
	ClaimPattern      string          `mapstructure:"claim_pattern" validate:"omitempty,regexp"`
	DeniedClaims      []string        `mapstructure:"denied_claims"`
	AllowedParameters []string        `mapstructure:"allowed_parameters"`
	Parameters        []ParameterRule `mapstructure:"parameters" validate:"dive"`
	AllowedAccounts   []string        `mapstructure:"allowed_accounts" validate:"dive,numeric,len=12"`
	AllowedRegions    []string        `mapstructure:"allowed_regions"`
}

type ParameterRule struct {
	Name     string `mapstructure:"name" validate:"required,max=128"`
	Required bool   `mapstructure:"required"`
	Equals   string `mapstructure:"equals"`
	Pattern  string `mapstructure:"pattern" validate:"omitempty,regexp"`
}

func DefaultConfig() Config {
	return Config{
		NamePrefix:    DefaultNamePrefix,
		NameParameter: DefaultNameParameter,
	}
}
