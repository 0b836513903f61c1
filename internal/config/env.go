package config

import (
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// envEvalContext відкриває змінні оточення як env.NAME і додає lookup/coalesce
func envEvalContext(environ []string) *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || !utf8.ValidString(value) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
		Functions: map[string]function.Function{
			"lookup":   stdlib.LookupFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}
