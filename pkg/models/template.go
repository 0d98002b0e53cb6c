package models

import (
	"maps"
	"strings"
)

// stageTemplates holds the curated default parameters per well-known stage name.
var stageTemplates = map[string]map[string]string{
	"dev": {
		"environment": "development",
		"replicas":    "1",
		"logLevel":    "debug",
		"autoDeploy":  "true",
	},
	"qa": {
		"environment": "qa",
		"replicas":    "2",
		"logLevel":    "info",
		"testSuite":   "regression",
	},
	"stage": {
		"environment": "staging",
		"replicas":    "2",
		"logLevel":    "info",
		"smokeTests":  "true",
	},
	"prod": {
		"environment": "production",
		"replicas":    "3",
		"logLevel":    "warn",
		"healthCheck": "strict",
	},
}

// StageTemplate returns a fresh copy of the default parameters for stageName.
// Unknown names get only an environment equal to the lower-cased name.
func StageTemplate(stageName string) map[string]string {
	key := strings.ToLower(strings.TrimSpace(stageName))

	if template, ok := stageTemplates[key]; ok {
		return maps.Clone(template)
	}

	return map[string]string{"environment": key}
}
