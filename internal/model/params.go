package model

import "fmt"

// Parameter names understood by the estimators in this package.
const (
	ParamLearningRate            = "learning_rate"
	ParamEpochs                  = "epochs"
	ParamL2                      = "l2"
	ParamSeed                    = "seed"
	ParamPruneMethod             = "prune_method"
	ParamConvergeLatentEstimates = "converge_latent_estimates"
	ParamFracNoise               = "frac_noise"
	ParamCVFolds                 = "cv_folds"
)

// Params holds a single hyperparameter assignment as name/value pairs.
// Values are what a grid or YAML file naturally produces: bool, int,
// float64 or string. Numeric getters coerce between int and float64 so
// a YAML literal like "1" satisfies a float-valued parameter.
type Params map[string]any

// Copy returns an independent shallow copy.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// GetBool returns the named bool parameter or def when absent.
func (p Params) GetBool(name string, def bool) bool {
	if v, ok := p[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetInt returns the named integer parameter or def when absent.
func (p Params) GetInt(name string, def int) int {
	if v, ok := p[name]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// GetFloat64 returns the named float parameter or def when absent.
func (p Params) GetFloat64(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// GetString returns the named string parameter or def when absent.
func (p Params) GetString(name string, def string) string {
	if v, ok := p[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (p Params) String() string {
	return fmt.Sprintf("%v", map[string]any(p))
}

// isBool reports whether v is usable as a bool parameter value.
func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// isNumber reports whether v is usable as a numeric parameter value.
func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}

// isString reports whether v is usable as a string parameter value.
func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
