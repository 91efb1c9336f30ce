package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// schema is the JSON Schema for the engine configuration document,
// following the corpus's embedded-schema-plus-gojsonschema pattern
// (pkg/policy/schema.go in the teacher repo).
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["sensors", "cdevs"],
  "properties": {
    "sampling_interval_ms": { "type": "integer", "minimum": 1 },
    "oscillation_guard": {
      "type": "object",
      "properties": {
        "window_ticks": { "type": "integer", "minimum": 1 },
        "max_sign_flips_pct": { "type": "number", "minimum": 0, "maximum": 100 },
        "cooldown_ticks": { "type": "integer", "minimum": 0 }
      }
    },
    "sensors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "hot_thresholds"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "hot_thresholds": {
            "type": "array",
            "minItems": 7,
            "maxItems": 7,
            "items": { "type": ["number", "null"] }
          },
          "multiplier": { "type": "number" },
          "predictor": {
            "type": "object",
            "required": ["support_pid_compensation"],
            "properties": {
              "support_pid_compensation": { "type": "boolean" },
              "prediction_weights": { "type": "array", "items": { "type": "number" } },
              "k_p_compensate": {
                "type": "array",
                "minItems": 7,
                "maxItems": 7,
                "items": { "type": ["number", "null"] }
              }
            }
          },
          "throttling": {
            "type": "object",
            "required": ["gains", "binded_cdevs"],
            "properties": {
              "gains": {
                "type": "array",
                "minItems": 7,
                "maxItems": 7,
                "items": {
                  "type": "object",
                  "properties": {
                    "s_power": { "type": ["number", "null"] },
                    "k_po": { "type": "number" },
                    "k_pu": { "type": "number" },
                    "k_io": { "type": "number" },
                    "k_iu": { "type": "number" },
                    "k_d": { "type": "number" },
                    "i_max": { "type": "number" },
                    "i_cutoff": { "type": "number" },
                    "min_alloc_power": { "type": "number" },
                    "max_alloc_power": { "type": "number" }
                  }
                }
              },
              "i_default": { "type": "number" },
              "i_default_pct": { "type": "number" },
              "tran_cycle": { "type": "integer", "minimum": 0 },
              "binded_cdevs": { "type": "object" },
              "profiles": { "type": "object" },
              "excluded_power": { "type": "object" }
            }
          }
        }
      }
    },
    "cdevs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["state2power"],
        "properties": {
          "state2power": { "type": "array", "items": { "type": "number" } },
          "max_state": { "type": "integer", "minimum": 0 }
        }
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "prometheus_listen_addr": { "type": "string" }
      }
    }
  }
}`

// Validate checks raw YAML config bytes against schema, returning a
// combined error describing every violation.
func Validate(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parsing yaml: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return fmt.Errorf("config: invalid document: %s", msg)
	}
	return nil
}
