package modules

import (
	"github.com/overunder/overunder/modules/gradebook"
	"github.com/overunder/overunder/pkg/application"
	"github.com/overunder/overunder/pkg/configuration"
)

func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		gradebook.NewModule(&gradebook.ModuleOptions{
			GradesFile:    conf.Gradebook.GradesFile,
			BackupOnStart: conf.Gradebook.BackupOnStart,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
