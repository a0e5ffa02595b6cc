package editsync

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Prompter collects one free-text input from the user; ok is false when the
// prompt was dismissed.
type Prompter interface {
	Prompt(message string) (value string, ok bool)
}

// Reloader forces a full reload of the rendered table. Creating a node can
// shift layout, ordering, and tree-derived grouping tags throughout the
// table, so the flow invalidates everything rather than patching in place.
type Reloader interface {
	Reload()
}

// CreateChildFlow collects a name and a weight specification, issues a
// single creation request, and on success forces a full reload.
type CreateChildFlow struct {
	prompter  Prompter
	authority Authority
	reloader  Reloader
	log       logrus.FieldLogger
}

func NewCreateChildFlow(prompter Prompter, authority Authority, reloader Reloader, log logrus.FieldLogger) *CreateChildFlow {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &CreateChildFlow{
		prompter:  prompter,
		authority: authority,
		reloader:  reloader,
		log:       log,
	}
}

// Run always returns false so callers can hand the result straight back to a
// link handler and suppress the default navigation.
func (f *CreateChildFlow) Run(ctx context.Context, parentQualifiedName string) bool {
	name, ok := f.prompter.Prompt("Name of the new assignment:")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return false
	}
	weightSpec, ok := f.prompter.Prompt("Weight of the new assignment:")
	if !ok {
		return false
	}

	qualifiedName := parentQualifiedName + Delimiter + name
	if err := f.authority.CreateChild(ctx, qualifiedName, strings.TrimSpace(weightSpec)); err != nil {
		f.log.WithError(err).WithField("qualified_name", qualifiedName).
			Warn("child creation failed")
		return false
	}
	f.reloader.Reload()
	return false
}
