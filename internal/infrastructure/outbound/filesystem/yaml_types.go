package filesystem

// yamlModel is the mapping form of a model file.
type yamlModel struct {
	Name            string           `yaml:"name,omitempty"`
	ConsiderVacuity bool             `yaml:"consider_vacuity,omitempty"`
	Constraints     []yamlConstraint `yaml:"constraints"`
}

// yamlConstraint is the YAML deserialization target for one constraint.
type yamlConstraint struct {
	ID                  string   `yaml:"id,omitempty"`
	Template            string   `yaml:"template"`
	Activities          []string `yaml:"activities"`
	Activation          string   `yaml:"activation,omitempty"`
	Correlation         string   `yaml:"correlation,omitempty"`
	Time                string   `yaml:"time,omitempty"`
	N                   *int     `yaml:"n,omitempty"`
	VacuousSatisfaction *bool    `yaml:"vacuous_satisfaction,omitempty"`
}
