package request

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// expressionPattern matches one RFC 6570 expression: an optional operator
// followed by a comma separated variable list.
var expressionPattern = regexp.MustCompile(`\{([+#./;?&]?)([^{}]+)\}`)

var modifierPattern = regexp.MustCompile(`(\*|:[0-9]+)$`)

// pathTemplate is a method path whose variable names have been replaced by
// placeholders, since discovery parameter names may contain characters RFC
// 6570 forbids in varnames.
type pathTemplate struct {
	template *uritemplate.Template
	names    map[string]string // placeholder -> parameter name
}

func parsePath(path string) (*pathTemplate, error) {
	names := make(map[string]string)
	next := 0

	sanitized := expressionPattern.ReplaceAllStringFunc(path, func(expr string) string {
		parts := expressionPattern.FindStringSubmatch(expr)
		operator, list := parts[1], parts[2]

		vars := strings.Split(list, ",")
		for i, v := range vars {
			modifier := modifierPattern.FindString(v)
			name := strings.TrimSuffix(v, modifier)

			placeholder := "p" + strconv.Itoa(next)
			next++

			names[placeholder] = name
			vars[i] = placeholder + modifier
		}

		return "{" + operator + strings.Join(vars, ",") + "}"
	})

	template, err := uritemplate.New(sanitized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errInvalidPath, path, err)
	}

	return &pathTemplate{template: template, names: names}, nil
}

// references reports whether the template names the parameter.
func (p *pathTemplate) references(name string) bool {
	for _, n := range p.names {
		if n == name {
			return true
		}
	}

	return false
}

// expand substitutes values. Simple expansion percent-encodes reserved
// characters, "{+name}" keeps them.
func (p *pathTemplate) expand(values map[string][]string) (string, error) {
	vars := uritemplate.Values{}

	for placeholder, name := range p.names {
		value, ok := values[name]
		if !ok {
			continue
		}

		if len(value) == 1 {
			vars.Set(placeholder, uritemplate.String(value[0]))
		} else {
			vars.Set(placeholder, uritemplate.List(value...))
		}
	}

	expanded, err := p.template.Expand(vars)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	return expanded, nil
}

// joinBase resolves a method path against the method base. An absolute path
// replaces the base path, a relative one is appended to it.
func joinBase(base, path string) (string, error) {
	if strings.HasPrefix(path, "/") {
		parsed, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", errInvalidBase, base, err)
		}

		return parsed.Scheme + "://" + parsed.Host + path, nil
	}

	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return base + path, nil
}
