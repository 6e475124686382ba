package domain

import "regexp"

// Environment is a deployment environment in the GitOps repository.
type Environment string

const (
	EnvStage Environment = "stage"
	EnvQA    Environment = "qa"
	EnvDev   Environment = "dev"
)

// Rules are evaluated in order. The rc rule must precede the catch-all
// suffix rule, which would otherwise also match rc versions.
var classificationRules = []struct {
	pattern *regexp.Regexp
	env     Environment
}{
	{regexp.MustCompile(`^\d+\.\d+\.\d+$`), EnvStage},
	{regexp.MustCompile(`^\d+\.\d+\.\d+-rc-\d+$`), EnvQA},
	{regexp.MustCompile(`^\d+\.\d+\.\d+-.*`), EnvDev},
}

// Classify maps a resolved version to exactly one environment.
func Classify(version string) (Environment, error) {
	for _, rule := range classificationRules {
		if rule.pattern.MatchString(version) {
			return rule.env, nil
		}
	}
	return "", &UnrecognizedVersionFormatError{Version: version}
}
