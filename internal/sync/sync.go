package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/salesforce"
	"github.com/shopmonkeyus/mds/internal/store"
	"github.com/shopmonkeyus/mds/internal/tracker"
)

// Config is everything the pipeline needs, supplied once at construction.
type Config struct {
	Logger  logger.Logger
	Client  salesforce.Client
	Store   *store.Store
	Tracker *tracker.Tracker
	OrgID   string
	Alias   string
}

// Stages selects which pipeline stages to run. Field sync always follows
// object sync and relationship extraction requires fields, so the selection
// keeps those pairings.
type Stages struct {
	Objects       bool
	Flows         bool
	Triggers      bool
	Relationships bool
}

// AllStages selects the full pipeline.
func AllStages() Stages {
	return Stages{Objects: true, Flows: true, Triggers: true, Relationships: true}
}

// None reports whether no stage was selected.
func (s Stages) None() bool {
	return !s.Objects && !s.Flows && !s.Triggers && !s.Relationships
}

// Summary is the result of one pipeline run. Counts reflect what was
// committed, not what was attempted.
type Summary struct {
	RunID         string
	Objects       int
	Fields        int
	Flows         int
	Triggers      int
	Relationships int
	Skipped       []Skip
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Pipeline runs the sync stages in order: objects, fields, flows, triggers,
// relationships. Sequential and single threaded; every stage commits
// independently so an interrupted run self-heals on the next one.
type Pipeline struct {
	config        Config
	logger        logger.Logger
	objects       *ObjectFieldSyncer
	flows         *FlowAndTriggerSyncer
	relationships *RelationshipExtractor
}

// New creates a pipeline for one org connection.
func New(config Config) *Pipeline {
	log := config.Logger.WithPrefix("[sync]")
	resolver := NewIdentityResolver(config.Logger, config.Client)
	return &Pipeline{
		config:        config,
		logger:        log,
		objects:       NewObjectFieldSyncer(config.Logger, config.Client, config.Store, resolver, config.OrgID),
		flows:         NewFlowAndTriggerSyncer(config.Logger, config.Client, config.Store, config.Tracker, config.OrgID, config.Alias),
		relationships: NewRelationshipExtractor(config.Logger, config.Store, config.OrgID, config.Alias),
	}
}

// Run executes the selected stages and records the run. Only fatal errors
// propagate; item-local failures surface as skips on the summary.
func (p *Pipeline) Run(ctx context.Context, stages Stages) (*Summary, error) {
	if stages.None() {
		stages = AllStages()
	}
	summary := Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	p.logger.Debug("starting sync run %s for org %s (%s)", summary.RunID, p.config.OrgID, p.config.Alias)

	if stages.Objects {
		count, err := p.objects.SyncObjects(ctx)
		if err != nil {
			return nil, err
		}
		summary.Objects = count

		count, skips, err := p.objects.SyncFields(ctx)
		if err != nil {
			return nil, err
		}
		summary.Fields = count
		summary.Skipped = append(summary.Skipped, skips...)
	}
	if stages.Flows {
		count, skips, err := p.flows.SyncFlows(ctx)
		if err != nil {
			return nil, err
		}
		summary.Flows = count
		summary.Skipped = append(summary.Skipped, skips...)
	}
	if stages.Triggers {
		count, err := p.flows.SyncTriggers(ctx)
		if err != nil {
			return nil, err
		}
		summary.Triggers = count
	}
	if stages.Relationships {
		count, err := p.relationships.Extract(ctx)
		if err != nil {
			return nil, err
		}
		summary.Relationships = count
	}

	summary.CompletedAt = time.Now()
	run := store.SyncRun{
		RunID:         summary.RunID,
		Alias:         p.config.Alias,
		OrgID:         p.config.OrgID,
		Objects:       summary.Objects,
		Fields:        summary.Fields,
		Flows:         summary.Flows,
		Triggers:      summary.Triggers,
		Relationships: summary.Relationships,
		StartedAt:     summary.StartedAt,
		CompletedAt:   summary.CompletedAt,
	}
	if err := p.config.Store.SaveSyncRun(ctx, run); err != nil {
		p.logger.Warn("error recording sync run: %s", err)
	}
	p.logger.Debug("sync run %s finished in %s", summary.RunID, summary.CompletedAt.Sub(summary.StartedAt))
	return &summary, nil
}

// ObjectSyncer exposes the object and field stages for direct use.
func (p *Pipeline) ObjectSyncer() *ObjectFieldSyncer {
	return p.objects
}

// FlowSyncer exposes the flow and trigger stages for direct use.
func (p *Pipeline) FlowSyncer() *FlowAndTriggerSyncer {
	return p.flows
}

// Relationships exposes the extraction stage for direct use.
func (p *Pipeline) Relationships() *RelationshipExtractor {
	return p.relationships
}

// Stats reads the cache totals for this org connection.
func (p *Pipeline) Stats(ctx context.Context) (*store.Stats, error) {
	return p.config.Store.Stats(ctx, p.config.OrgID, p.config.Alias)
}
