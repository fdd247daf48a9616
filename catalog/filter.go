package catalog

import (
	"fmt"
	"strings"

	goeval "github.com/edisonguo/govaluate"
)

// SceneFilter admits or rejects catalog records with a config-supplied
// boolean expression, e.g. `cloud_cover < 20 && month >= 6`.
type SceneFilter struct {
	expr *goeval.EvaluableExpression
}

// ParseSceneFilter compiles the expression and rejects unknown
// variables up front rather than at evaluation time.
func ParseSceneFilter(pattern string) (*SceneFilter, error) {
	if len(strings.TrimSpace(pattern)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(pattern)
	if err != nil {
		return nil, err
	}

	validVariables := map[string]struct{}{
		"id":          struct{}{},
		"grid_code":   struct{}{},
		"cloud_cover": struct{}{},
		"year":        struct{}{},
		"month":       struct{}{},
		"day":         struct{}{},
		"epsg":        struct{}{},
	}
	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := validVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are %v", varName, validVariables)
			}
		}
	}
	return &SceneFilter{expr: expr}, nil
}

// Admit evaluates the expression against one record. A nil filter
// admits everything.
func (f *SceneFilter) Admit(scene *Scene) (bool, error) {
	if f == nil || f.expr == nil {
		return true, nil
	}

	parameters := map[string]interface{}{
		"id":          scene.ID,
		"grid_code":   scene.GridCode,
		"cloud_cover": scene.CloudCover,
		"year":        float64(scene.Acquired.Year()),
		"month":       float64(int(scene.Acquired.Month())),
		"day":         float64(scene.Acquired.Day()),
		"epsg":        float64(scene.EPSG),
	}

	result, err := f.expr.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("scene filter: %v", err)
	}

	val, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("scene filter: result '%v' is not boolean", result)
	}
	return val, nil
}
