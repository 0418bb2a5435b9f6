// Package roles loads the YAML role table mapping a username to its
// engine.Role, kept outside the engine core the same way spec.md places
// authorization at the boundary rather than inside the document engine.
package roles

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/mdcollab/internal/engine"
)

// ErrRoleTableNotFound means the role table file does not exist.
var ErrRoleTableNotFound = errors.New("role table not found")

// ErrRoleTableInvalid means the role table file failed to parse or
// contained an unknown role string.
var ErrRoleTableInvalid = errors.New("invalid role table")

// ErrUnknownUser means the username isn't present in the table at all.
var ErrUnknownUser = errors.New("unknown user")

// rawTable is the on-disk shape: a flat map of username -> "read"|"write".
type rawTable map[string]string

// Table is the parsed, validated role table.
type Table struct {
	roles map[string]engine.Role
}

// Load reads and parses the YAML role table at path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-configured
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRoleTableNotFound, path)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrRoleTableInvalid, path, err)
	}

	return Parse(data)
}

// Parse validates raw YAML bytes into a Table, rejecting any role value
// that isn't exactly "read" or "write".
func Parse(data []byte) (*Table, error) {
	var raw rawTable

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRoleTableInvalid, err)
	}

	roles := make(map[string]engine.Role, len(raw))

	for user, roleStr := range raw {
		role, err := parseRole(roleStr)
		if err != nil {
			return nil, fmt.Errorf("%w: user %q: %w", ErrRoleTableInvalid, user, err)
		}

		roles[user] = role
	}

	return &Table{roles: roles}, nil
}

func parseRole(s string) (engine.Role, error) {
	switch s {
	case "read":
		return engine.RoleRead, nil
	case "write":
		return engine.RoleWrite, nil
	default:
		return 0, fmt.Errorf("role must be %q or %q, got %q", "read", "write", s)
	}
}

// RoleOf returns username's role, or ErrUnknownUser if it isn't listed.
func (t *Table) RoleOf(username string) (engine.Role, error) {
	role, ok := t.roles[username]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUser, username)
	}

	return role, nil
}

// Len reports how many users the table lists.
func (t *Table) Len() int { return len(t.roles) }
