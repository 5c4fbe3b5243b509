package versions

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/observability"
	"github.com/platinummonkey/docsapi/pkg/tasks"
)

var tracer = otel.Tracer("docsapi/versions")

// LatestSlug is the base value that always counts as highest
const LatestSlug = "latest"

// Store is the read access the resolver needs
type Store interface {
	GetProject(ctx context.Context, slug string) (*api.Project, error)
	GetVersion(ctx context.Context, projectSlug, slug string) (*api.Version, error)
	ListVersions(ctx context.Context, filter api.VersionFilter, page api.Page) ([]*api.Version, int64, error)
}

// Comparison is the outcome of CompareToBase
type Comparison struct {
	Project   *api.Project
	Highest   *api.Version
	Parsed    *ParsedVersion
	IsHighest bool
	URL       string
	Slug      string
}

// BuildHandle acknowledges an enqueued build
type BuildHandle struct {
	Building bool   `json:"building"`
	TaskID   string `json:"-"`
}

// Resolver answers "which version is highest" and triggers builds. It keeps
// no state between calls.
type Resolver struct {
	store   Store
	queue   tasks.Queue
	links   api.Links
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(store Store, queue tasks.Queue, links api.Links, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		store:   store,
		queue:   queue,
		links:   links,
		metrics: metrics,
	}
}

// HighestVersion picks the highest parseable version. Unparseable slugs are
// ignored; among equal versions the lexically smallest slug wins so the
// result does not depend on input order. Returns nil, nil when nothing parses.
func HighestVersion(active []*api.Version) (*api.Version, *ParsedVersion) {
	var (
		best       *api.Version
		bestParsed *ParsedVersion
	)
	for _, v := range active {
		parsed := FromVersion(v.Slug)
		if parsed == nil {
			continue
		}
		if bestParsed == nil {
			best, bestParsed = v, parsed
			continue
		}
		switch cmp := parsed.Compare(bestParsed); {
		case cmp > 0, cmp == 0 && v.Slug < best.Slug:
			best, bestParsed = v, parsed
		}
	}
	return best, bestParsed
}

// CompareToBase resolves the project's highest active version and reports
// whether base is at least as high. It fails open: an absent base, "latest",
// an unknown base or an unparseable base all count as highest. Only an
// unknown project is an error.
func (r *Resolver) CompareToBase(ctx context.Context, projectSlug, base string) (*Comparison, error) {
	ctx, span := tracer.Start(ctx, "CompareToBase",
		trace.WithAttributes(
			attribute.String("project", projectSlug),
			attribute.String("base", base),
		),
	)
	defer span.End()

	project, err := r.store.GetProject(ctx, projectSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project lookup failed")
		return nil, err
	}

	active := true
	versions, _, err := r.store.ListVersions(ctx, api.VersionFilter{ProjectSlug: project.Slug, Active: &active}, api.Page{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list versions failed")
		return nil, fmt.Errorf("list versions of %s: %w", project.Slug, err)
	}

	highest, highestParsed := HighestVersion(versions)
	result := &Comparison{
		Project:   project,
		Highest:   highest,
		Parsed:    highestParsed,
		IsHighest: true,
	}
	if highest != nil {
		result.URL = r.links.VersionURL(project.Slug, highest.Slug)
		result.Slug = highest.Slug
	}

	if base != "" && base != LatestSlug && highestParsed != nil {
		isHighest, err := r.baseIsHighest(ctx, project.Slug, base, highestParsed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "base lookup failed")
			return nil, err
		}
		result.IsHighest = isHighest
	}

	span.SetAttributes(
		attribute.String("highest", result.Slug),
		attribute.Bool("is_highest", result.IsHighest),
	)
	r.metrics.RecordComparison(result.IsHighest)
	return result, nil
}

func (r *Resolver) baseIsHighest(ctx context.Context, projectSlug, base string, highest *ParsedVersion) (bool, error) {
	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"project": projectSlug,
		"base":    base,
	})

	version, err := r.store.GetVersion(ctx, projectSlug, base)
	if errors.Is(err, api.ErrNotFound) {
		logger.Debug("Base version not found, treating as highest")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up base version %s: %w", base, err)
	}

	baseParsed := FromVersion(version.Slug)
	if baseParsed == nil {
		logger.Debug("Base version is not numeric, treating as highest")
		return true, nil
	}
	return baseParsed.Compare(highest) >= 0, nil
}

// TriggerBuild enqueues an update_docs task for one version. Unlike
// CompareToBase, an unknown version is an error and nothing is enqueued.
// It returns as soon as the task is queued.
func (r *Resolver) TriggerBuild(ctx context.Context, projectSlug, versionSlug string) (*BuildHandle, error) {
	ctx, span := tracer.Start(ctx, "TriggerBuild",
		trace.WithAttributes(
			attribute.String("project", projectSlug),
			attribute.String("version", versionSlug),
		),
	)
	defer span.End()

	project, err := r.store.GetProject(ctx, projectSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project lookup failed")
		return nil, err
	}

	version, err := r.store.GetVersion(ctx, project.Slug, versionSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "version lookup failed")
		return nil, err
	}

	task := tasks.NewUpdateDocs(project.ID, version.ID)
	err = r.queue.Enqueue(ctx, task)
	r.metrics.RecordBuildEnqueue(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		return nil, fmt.Errorf("enqueue build of %s/%s: %w", project.Slug, version.Slug, err)
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"project": project.Slug,
		"version": version.Slug,
		"task_id": task.ID.String(),
	}).Info("Build enqueued")

	return &BuildHandle{Building: true, TaskID: task.ID.String()}, nil
}
