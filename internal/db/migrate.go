package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// pre creates the schema, extensions (pg_trgm, vector) and enum types the
// models reference; post adds indexes, foreign keys and checks gorm cannot
// express.
var (
	//go:embed sql/pre_automigrate.sql
	preMigrateSQL string

	//go:embed sql/post_automigrate.sql
	postMigrateSQL string
)

type migrationStep struct {
	name string
	run  func(ctx context.Context) error
}

func (p *Pool) migrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return errPoolClosed
	}

	steps := []migrationStep{
		{name: "schema and types", run: p.execScript(preMigrateSQL)},
		{name: "tables", run: func(ctx context.Context) error {
			return p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...)
		}},
		{name: "indexes and constraints", run: p.execScript(postMigrateSQL)},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (p *Pool) execScript(script string) func(context.Context) error {
	return func(ctx context.Context) error {
		trimmed := strings.TrimSpace(script)
		if trimmed == "" {
			return nil
		}
		return p.gdb.WithContext(ctx).Exec(trimmed).Error
	}
}
