package gradebook

import (
	"context"
	"fmt"

	"github.com/overunder/overunder/modules/gradebook/infrastructure/persistence"
	"github.com/overunder/overunder/modules/gradebook/presentation/controllers"
	"github.com/overunder/overunder/modules/gradebook/services"
	"github.com/overunder/overunder/pkg/application"
)

type ModuleOptions struct {
	// GradesFile is the tab-separated file holding the whole gradebook.
	GradesFile string
	// BackupOnStart writes a timestamped copy of the file before serving.
	BackupOnStart bool
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	repo := persistence.NewCSVBookRepository(m.opts.GradesFile)
	svc := services.NewGradebookService(repo, app.EventPublisher(), app.Logger())

	ctx := context.Background()
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("loading gradebook %s: %w", m.opts.GradesFile, err)
	}
	if m.opts.BackupOnStart {
		path, err := svc.Backup(ctx)
		if err != nil {
			return fmt.Errorf("backing up gradebook: %w", err)
		}
		app.Logger().WithField("path", path).Info("gradebook backed up")
	}

	app.RegisterServices(svc)

	app.RegisterControllers(
		controllers.NewGradebookAPIController(app),
		controllers.NewStreamController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "gradebook"
}
