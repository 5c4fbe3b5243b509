package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// UpdateDocsTask is the name of the documentation build task
const UpdateDocsTask = "update_docs"

// Parameter keys of an update_docs task
const (
	ParamProjectID = "pk"
	ParamVersionID = "version_pk"
)

// NewUpdateDocs builds an update_docs task for a project version
func NewUpdateDocs(projectID, versionID int64) Task {
	return NewTask(UpdateDocsTask, map[string]interface{}{
		ParamProjectID: projectID,
		ParamVersionID: versionID,
	})
}

// BuildStore is what the update_docs handler needs from storage
type BuildStore interface {
	GetProjectByID(ctx context.Context, id int64) (*api.Project, error)
	GetVersionByID(ctx context.Context, id int64) (*api.Version, error)
	CreateBuild(ctx context.Context, build *api.Build) error
}

// UpdateDocsHandler records a triggered build for the task's project version.
// Running the documentation toolchain happens outside this service.
func UpdateDocsHandler(store BuildStore) Handler {
	return func(ctx context.Context, task Task) error {
		projectID, err := task.Int64Param(ParamProjectID)
		if err != nil {
			return err
		}
		versionID, err := task.Int64Param(ParamVersionID)
		if err != nil {
			return err
		}

		project, err := store.GetProjectByID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("load project %d: %w", projectID, err)
		}
		version, err := store.GetVersionByID(ctx, versionID)
		if err != nil {
			return fmt.Errorf("load version %d: %w", versionID, err)
		}
		if version.ProjectID != project.ID {
			return fmt.Errorf("version %d does not belong to project %s", versionID, project.Slug)
		}

		build := &api.Build{
			ProjectID:   project.ID,
			ProjectSlug: project.Slug,
			VersionID:   &version.ID,
			Type:        "html",
			State:       api.BuildStateTriggered,
			Date:        time.Now().UTC(),
		}
		if err := store.CreateBuild(ctx, build); err != nil {
			return fmt.Errorf("record build: %w", err)
		}

		observability.GetLogger(ctx).WithFields(map[string]interface{}{
			"project":  project.Slug,
			"version":  version.Slug,
			"build_id": build.ID,
		}).Info("Documentation build triggered")
		return nil
	}
}
