package auth

import (
	"fmt"
	"strings"
)

// Scope is a Canva Connect OAuth scope
type Scope string

// Canva Connect scopes. Request the fewest the application needs.
const (
	ScopeAssetRead                Scope = "asset:read"
	ScopeAssetWrite               Scope = "asset:write"
	ScopeBrandTemplateMetaRead    Scope = "brandtemplate:meta:read"
	ScopeBrandTemplateContentRead Scope = "brandtemplate:content:read"
	ScopeCommentRead              Scope = "comment:read"
	ScopeCommentWrite             Scope = "comment:write"
	ScopeDesignMetaRead           Scope = "design:meta:read"
	ScopeDesignContentRead        Scope = "design:content:read"
	ScopeDesignContentWrite       Scope = "design:content:write"
	ScopeFolderRead               Scope = "folder:read"
	ScopeFolderWrite              Scope = "folder:write"
	ScopeProfileRead              Scope = "profile:read"
)

var allScopes = []Scope{
	ScopeAssetRead,
	ScopeAssetWrite,
	ScopeBrandTemplateMetaRead,
	ScopeBrandTemplateContentRead,
	ScopeCommentRead,
	ScopeCommentWrite,
	ScopeDesignMetaRead,
	ScopeDesignContentRead,
	ScopeDesignContentWrite,
	ScopeFolderRead,
	ScopeFolderWrite,
	ScopeProfileRead,
}

// AllScopes returns every known scope in a stable order
func AllScopes() []Scope {
	out := make([]Scope, len(allScopes))
	copy(out, allScopes)
	return out
}

func (s Scope) String() string {
	return string(s)
}

// ParseScope returns the known scope named s
func ParseScope(s string) (Scope, error) {
	for _, scope := range allScopes {
		if string(scope) == s {
			return scope, nil
		}
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ParseScopes parses a space- or comma-separated scope list.
// Empty input yields no scopes.
func ParseScopes(s string) ([]Scope, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
	scopes := make([]Scope, 0, len(fields))
	for _, f := range fields {
		scope, err := ParseScope(f)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// ScopesString joins scopes with single spaces, preserving order
func ScopesString(scopes []Scope) string {
	return strings.Join(scopeStrings(scopes), " ")
}

func scopeStrings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}
