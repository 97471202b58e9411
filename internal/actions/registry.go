// ABOUTME: Closed registry of named follow-up actions for ExecCode directives.
// ABOUTME: Resolves call descriptors to registered handlers; no raw code is ever evaluated.

package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Registry errors
var (
	// ErrUnknownAction means the descriptor named an action that is not registered.
	ErrUnknownAction = errors.New("unknown action")

	// ErrBadDescriptor means the call descriptor could not be parsed.
	ErrBadDescriptor = errors.New("malformed action descriptor")

	// ErrBadArity means the descriptor's argument count does not match the action.
	ErrBadArity = errors.New("wrong argument count for action")

	// ErrAlreadyRegistered means an action with the same name already exists.
	ErrAlreadyRegistered = errors.New("action already registered")
)

// senderParam is the descriptor token bound to the current sender identity.
const senderParam = "sender"

// Definition describes one registered action. Params names the positional
// parameters in order; a parameter named "sender" is filled from the session
// rather than the descriptor text.
type Definition struct {
	Name   string
	Params []string
	Run    func(ctx context.Context, args map[string]string) error
}

// Registry is the closed set of actions the dialog engine may trigger.
// Everything a reply can invoke is registered up front at startup; a
// descriptor naming anything else is a protocol violation.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Definition
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*Definition),
	}
}

// Register adds an action definition. Returns ErrAlreadyRegistered if the
// name is taken.
func (r *Registry) Register(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty name", ErrBadDescriptor)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, def.Name)
	}
	r.actions[def.Name] = def
	return nil
}

// Names returns the registered action names, for startup logging.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// Invocation is a resolved, validated action call ready to run.
type Invocation struct {
	Name string
	def  *Definition
	args map[string]string
}

// Run executes the resolved action.
func (inv *Invocation) Run(ctx context.Context) error {
	return inv.def.Run(ctx, inv.args)
}

// Resolve parses descriptor, looks the action up, validates arity, and
// binds senderID to any "sender" parameter. Resolution failures are
// protocol violations; only errors returned by Run indicate a runtime
// failure.
func (r *Registry) Resolve(senderID, descriptor string) (*Invocation, error) {
	name, args, err := parseCall(descriptor)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	def, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	if len(args) != len(def.Params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrBadArity, name, len(def.Params), len(args))
	}

	resolved := make(map[string]string, len(def.Params))
	for i, param := range def.Params {
		if args[i] == senderParam {
			resolved[param] = senderID
			continue
		}
		resolved[param] = args[i]
	}

	return &Invocation{Name: name, def: def, args: resolved}, nil
}

// Execute resolves and runs a descriptor in one step.
func (r *Registry) Execute(ctx context.Context, senderID, descriptor string) error {
	inv, err := r.Resolve(senderID, descriptor)
	if err != nil {
		return err
	}
	return inv.Run(ctx)
}

// parseCall splits a descriptor of the form `name(arg1, "arg2", ...)` into
// its action name and positional arguments. Quoted arguments lose their
// quotes; bare arguments are kept verbatim (the dialog tree substitutes
// profile variables into either form). Nested calls are not part of the
// protocol and do not parse.
func parseCall(descriptor string) (string, []string, error) {
	descriptor = strings.TrimSpace(descriptor)

	open := strings.Index(descriptor, "(")
	if open <= 0 || !strings.HasSuffix(descriptor, ")") {
		return "", nil, fmt.Errorf("%w: %q", ErrBadDescriptor, descriptor)
	}

	name := strings.TrimSpace(descriptor[:open])
	if !isIdentifier(name) {
		return "", nil, fmt.Errorf("%w: bad action name %q", ErrBadDescriptor, name)
	}

	inner := descriptor[open+1 : len(descriptor)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, nil
	}

	var args []string
	for _, raw := range strings.Split(inner, ",") {
		arg := strings.TrimSpace(raw)
		if arg == "" {
			return "", nil, fmt.Errorf("%w: empty argument in %q", ErrBadDescriptor, descriptor)
		}
		if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
			arg = arg[1 : len(arg)-1]
		} else if strings.Contains(arg, `"`) || strings.Contains(arg, "(") {
			return "", nil, fmt.Errorf("%w: unparsable argument %q", ErrBadDescriptor, raw)
		}
		args = append(args, arg)
	}
	return name, args, nil
}

// isIdentifier reports whether s looks like a plain action name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
