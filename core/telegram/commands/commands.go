// Package commands describes slash commands routed by the bot.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a slash command published in the bot menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Position orders the menu; ties are broken by name.
	Position int
	// Hidden commands are routed but left out of SetCommands.
	Hidden  bool
	Aliases []string
}

// Endpoints returns the routed names: the canonical one followed by the
// aliases, all with a leading slash.
func (c Command) Endpoints(name string) []string {
	out := []string{slash(name)}
	for _, a := range c.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, slash(a))
		}
	}
	return out
}

// Answers reports whether name is the canonical name or one of the aliases.
func (c Command) Answers(canonical, name string) bool {
	name = slash(name)
	for _, e := range c.Endpoints(canonical) {
		if e == name {
			return true
		}
	}
	return false
}

func slash(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}
