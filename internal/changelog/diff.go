package changelog

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
)

type mode int

const (
	// modeIdentity keeps an id -> Summary projection and classifies every
	// incoming entity as new, update, delete or unchanged.
	modeIdentity mode = iota
	// modeIDSet keeps only the set of live ids; seen ids are updates.
	modeIDSet
	// modePassthrough keeps no projection; every row is a record.
	modePassthrough
)

// entity is one incoming row, already reduced to what the diff needs.
type entity struct {
	id      string
	metaID  string
	deleted bool
	summary Summary
	fields  map[string]any
}

// classSpec parameterises the diff algorithm for one entity class.
type classSpec struct {
	class core.EntityClass
	mode  mode
	// noChangeTag omits the change field from records (months).
	noChangeTag bool
	// prepare runs before extraction and may update auxiliary maps in the
	// staged class state (category groups).
	prepare func(p *pass, next *ClassState)
	extract func(p *pass, next *ClassState) ([]entity, error)
	// same reports whether two projections are unchanged.
	same func(a, b Summary) bool
}

// pass carries the inputs of one Apply call.
type pass struct {
	budget    *ledger.Budget
	knowledge int64
	first     bool
	now       time.Time
	digits    int
	prev      *BudgetState
	next      *BudgetState
	logger    *slog.Logger
}

func (p *pass) amount(v int64) string {
	return core.FormatAmount(v, p.digits)
}

func (p *pass) optionalAmount(v *int64) any {
	if s := core.FormatOptionalAmount(v, p.digits); s != nil {
		return *s
	}
	return nil
}

// Engine applies ledger snapshots to budget states.
type Engine struct {
	logger *slog.Logger
	specs  []classSpec
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, specs: classSpecs()}
}

// Outcome is the result of applying one snapshot.
type Outcome struct {
	State *BudgetState
	// Emitted counts the records produced per class during this pass.
	Emitted map[core.EntityClass]int
	// Subscribers are the triggers, registered before this pass, of every
	// class that emitted at least one record.
	Subscribers []string
}

// Changed reports whether any class emitted a record.
func (o *Outcome) Changed() bool {
	for _, n := range o.Emitted {
		if n > 0 {
			return true
		}
	}
	return false
}

// Apply diffs snap against prev and returns the next state. prev is not
// modified. Records are stamped with now.
func (e *Engine) Apply(prev *BudgetState, snap *ledger.Snapshot, now time.Time) (*Outcome, error) {
	if snap == nil {
		return nil, fmt.Errorf("apply: nil snapshot")
	}

	next := &BudgetState{
		BudgetID: prev.BudgetID,
		Config: &Config{
			ID:        snap.Budget.ID,
			Name:      snap.Budget.Name,
			Knowledge: snap.ServerKnowledge,
		},
		Classes: make(map[core.EntityClass]*ClassState, len(core.SyncOrder)),
		Version: prev.Version,
	}
	if next.BudgetID == "" {
		next.BudgetID = snap.Budget.ID
	}

	p := &pass{
		budget:    &snap.Budget,
		knowledge: snap.ServerKnowledge,
		first:     prev.IsFirstSync(),
		now:       now,
		digits:    snap.Budget.DecimalDigits(),
		prev:      prev,
		next:      next,
		logger:    e.logger.With("budget_id", next.BudgetID, "knowledge", snap.ServerKnowledge),
	}

	out := &Outcome{State: next, Emitted: make(map[core.EntityClass]int, len(e.specs))}
	var changedClasses []core.EntityClass
	for _, spec := range e.specs {
		n, err := e.applyClass(p, spec)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", spec.class, err)
		}
		out.Emitted[spec.class] = n
		if n > 0 {
			changedClasses = append(changedClasses, spec.class)
		}
	}

	out.Subscribers = prev.Subscribers(changedClasses)
	return out, nil
}

func (e *Engine) applyClass(p *pass, spec classSpec) (int, error) {
	var old ClassState
	if cs, ok := p.prev.Classes[spec.class]; ok && cs != nil {
		old = *cs
	}

	next := &ClassState{Triggers: slices.Clone(old.Triggers)}
	if !p.first {
		next.Groups = maps.Clone(old.Groups)
	}
	if next.Groups == nil && spec.prepare != nil {
		next.Groups = make(map[string]string)
	}
	p.next.Classes[spec.class] = next

	if spec.prepare != nil {
		spec.prepare(p, next)
	}

	items, err := spec.extract(p, next)
	if err != nil {
		return 0, err
	}

	var records []core.ChangeRecord
	switch spec.mode {
	case modeIdentity:
		records = diffIdentity(p, spec, old.Projection, next, items)
	case modeIDSet:
		records = diffIDSet(p, spec, old.Tracked, next, items)
	case modePassthrough:
		records = passthrough(p, spec, items)
	}

	if p.first {
		next.Changed = []core.ChangeRecord{}
		return 0, nil
	}

	// Records are accumulated in snapshot order and prepended newest-first.
	slices.Reverse(records)
	changed := make([]core.ChangeRecord, 0, len(records)+len(old.Changed))
	changed = append(changed, records...)
	changed = append(changed, old.Changed...)
	next.Changed = Curate(changed, p.now)

	return len(records), nil
}

func diffIdentity(p *pass, spec classSpec, prior map[string]Summary, next *ClassState, items []entity) []core.ChangeRecord {
	staged := make(map[string]Summary, len(prior))
	if !p.first {
		maps.Copy(staged, prior)
	} else {
		prior = nil
	}

	var records []core.ChangeRecord
	for _, it := range items {
		var change core.ChangeType
		old, known := prior[it.id]
		switch {
		case it.deleted:
			change = core.ChangeDelete
			delete(staged, it.id)
		case known && spec.same(old, it.summary):
			staged[it.id] = it.summary
			continue
		case known:
			change = core.ChangeUpdate
			staged[it.id] = it.summary
		default:
			change = core.ChangeNew
			staged[it.id] = it.summary
		}
		if !p.first {
			records = append(records, newRecord(p, spec, change, it))
		}
	}

	next.Projection = staged
	return records
}

func diffIDSet(p *pass, spec classSpec, prior []string, next *ClassState, items []entity) []core.ChangeRecord {
	if p.first {
		next.Tracked = []string{}
		return nil
	}

	live := make(map[string]struct{}, len(prior))
	for _, id := range prior {
		live[id] = struct{}{}
	}
	tracked := slices.Clone(prior)

	var records []core.ChangeRecord
	for _, it := range items {
		var change core.ChangeType
		_, seen := live[it.id]
		switch {
		case it.deleted:
			change = core.ChangeDelete
			if seen {
				delete(live, it.id)
				tracked = slices.DeleteFunc(tracked, func(id string) bool { return id == it.id })
			}
		case seen:
			change = core.ChangeUpdate
		default:
			change = core.ChangeNew
			live[it.id] = struct{}{}
			tracked = append(tracked, it.id)
		}
		records = append(records, newRecord(p, spec, change, it))
	}

	if tracked == nil {
		tracked = []string{}
	}
	next.Tracked = tracked
	return records
}

func passthrough(p *pass, spec classSpec, items []entity) []core.ChangeRecord {
	if p.first {
		return nil
	}
	records := make([]core.ChangeRecord, 0, len(items))
	for _, it := range items {
		records = append(records, newRecord(p, spec, "", it))
	}
	return records
}

func newRecord(p *pass, spec classSpec, change core.ChangeType, it entity) core.ChangeRecord {
	if spec.noChangeTag {
		change = ""
	}
	metaID := it.metaID
	if metaID == "" {
		metaID = it.id
	}
	return core.NewChangeRecord(p.now, change, metaID, p.knowledge, it.fields)
}
