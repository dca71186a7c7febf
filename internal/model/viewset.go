package model

import "time"

// SourceKind distinguishes the two view-set materialization strategies
// (§4.7): block-source views decode raw blocks directly; SQL-source
// views transform other views through the query engine.
type SourceKind int

const (
	// SourceBlock is a block-source view-set (C8).
	SourceBlock SourceKind = iota
	// SourceSQL is a SQL-derived view-set (C9).
	SourceSQL
)

// ViewSetInfo is the static description of a view-set: schema identity,
// materialization strategy, and scheduling metadata. It does not carry
// per-instance state — that lives in the view.View capability object a
// factory returns for a given instance id.
type ViewSetInfo struct {
	Name            string
	SchemaHash      string
	Source          SourceKind
	UpdateGroup     int  // lower runs first (§4.11); -1 means "JIT only, no schedule"
	SourceGrain     time.Duration
	MergeGrain      time.Duration
	AllowsGlobal    bool // whether the literal "global" instance id is valid
	ScheduledInstances []string // instances seeded as globally-scheduled tables (§4.7)
}

// Scheduled reports whether this view-set has a batch schedule at all.
// A view-set with UpdateGroup < 0 is JIT-only: the batch scheduler (C11)
// never materializes it, and any instance is served on demand by C10.
func (v ViewSetInfo) Scheduled() bool {
	return v.UpdateGroup >= 0
}

// Well-known update groups (§4.11): raw-block foundation views,
// primary block-source views, and derived SQL views each get their own
// ordinal band so new view-sets can be slotted in without renumbering
// everything.
const (
	UpdateGroupFoundation = 1000
	UpdateGroupPrimary    = 2000
	UpdateGroupDerived    = 3000
)
