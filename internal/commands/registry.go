package commands

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// slashName matches the names Discord accepts for chat commands and options
var slashName = regexp.MustCompile(`^[-_a-z0-9]{1,32}$`)

// maxCommands is Discord's limit of chat commands per application scope
const maxCommands = 100

// Registry holds the slash commands the bot publishes
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd after checking its name and option names against Discord's rules
func (r *Registry) Register(cmd Command) error {
	name := cmd.Name()
	if !slashName.MatchString(name) {
		return fmt.Errorf("invalid command name %q", name)
	}
	if err := checkOptions(name, cmd.Options()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}
	if len(r.commands) >= maxCommands {
		return fmt.Errorf("cannot register %s: limit of %d commands reached", name, maxCommands)
	}
	r.commands[name] = cmd
	return nil
}

func checkOptions(command string, opts []Option) error {
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		if !slashName.MatchString(o.Name) {
			return fmt.Errorf("/%s: invalid option name %q", command, o.Name)
		}
		if seen[o.Name] {
			return fmt.Errorf("/%s: duplicate option %q", command, o.Name)
		}
		seen[o.Name] = true
		if err := checkOptions(command+" "+o.Name, o.Options); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers every command, panicking on the first error
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Get looks a command up by its slash name
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns every command sorted by name
func (r *Registry) All() []Command {
	r.mu.RLock()
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	r.mu.RUnlock()

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// ByCategory groups the commands visible to perms, each group sorted by name
func (r *Registry) ByCategory(perms int64) map[Category][]Command {
	out := make(map[Category][]Command)
	for _, cmd := range r.All() {
		if HasPermission(perms, cmd.RequiredPermission()) {
			out[cmd.Category()] = append(out[cmd.Category()], cmd)
		}
	}
	return out
}

// Len returns the number of registered commands
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
