package taxonomy

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// MaxLineageDepth bounds lineage walks. No real taxonomy comes close; hitting
// it means the store is serving a cycle.
const MaxLineageDepth = 1024

// Options tunes engine pagination.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Engine answers structural and search queries over registered namespaces.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	registry *Registry
	opts     Options
	logger   *zap.SugaredLogger
}

// NewEngine creates an engine over registry. Zero options take the package
// defaults.
func NewEngine(registry *Registry, opts Options, log *zap.SugaredLogger) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{registry: registry, opts: opts, logger: log}
}

// Registry returns the namespace registry the engine serves.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// TaxonRequest addresses a single taxon.
type TaxonRequest struct {
	ID     string
	NS     string
	Select []string
}

// ChildrenRequest lists the direct children of a taxon.
type ChildrenRequest struct {
	ID         string
	NS         string
	SearchText string
	Select     []string
	Limit      *int
	Offset     int
}

// SiblingsRequest lists the other children of a taxon's parent.
type SiblingsRequest struct {
	ID     string
	NS     string
	Select []string
	Limit  *int
	Offset int
}

// SearchTaxaRequest searches a namespace by name, optionally by rank.
type SearchTaxaRequest struct {
	NS             string
	SearchText     string
	Ranks          []string
	IncludeStrains bool
	Select         []string
	Limit          *int
	Offset         int
}

// SearchSpeciesRequest searches species (and optionally strains) by name.
type SearchSpeciesRequest struct {
	NS             string
	SearchText     string
	IncludeStrains bool
	Select         []string
	Limit          *int
	Offset         int
}

// resolve validates the id/ns pair and looks up the namespace before any
// store I/O happens.
func (e *Engine) resolve(id, ns string) (*Namespace, error) {
	if id == "" {
		return nil, errors.NewInvalidParams("'id' is required")
	}
	return e.registry.Resolve(ns)
}

// fetch loads a taxon, turning store misses into a namespace-qualified NotFound.
func fetch(ctx context.Context, ns *Namespace, id string) (*Taxon, error) {
	t, err := ns.Graph.GetTaxon(ctx, id)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewNotFound("taxon %q in namespace %q", id, ns.ID)
		}
		return nil, errors.Wrapf(err, "get taxon %q", id)
	}
	return t, nil
}

// GetTaxon returns the single taxon req.ID.
func (e *Engine) GetTaxon(ctx context.Context, req TaxonRequest) (*Result, error) {
	ns, err := e.resolve(req.ID, req.NS)
	if err != nil {
		return nil, err
	}
	t, err := fetch(ctx, ns, req.ID)
	if err != nil {
		return nil, err
	}
	return newResult([]Record{ns.Project(t, req.Select)}, nil), nil
}

// GetLineage returns the path from the namespace root down to req.ID,
// inclusive of both ends.
func (e *Engine) GetLineage(ctx context.Context, req TaxonRequest) (*Result, error) {
	ns, err := e.resolve(req.ID, req.NS)
	if err != nil {
		return nil, err
	}
	t, err := fetch(ctx, ns, req.ID)
	if err != nil {
		return nil, err
	}

	chain := []Taxon{*t}
	for cur := t; !cur.IsRoot(); {
		if len(chain) >= MaxLineageDepth {
			return nil, errors.AssertionFailedf("lineage of %q in %q exceeds %d levels", req.ID, ns.ID, MaxLineageDepth)
		}
		parent, err := ns.Graph.GetParent(ctx, cur.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "get parent of %q", cur.ID)
		}
		chain = append(chain, *parent)
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	logger.FromContext(ctx, e.logger).Debugw("Resolved lineage",
		logger.FieldNamespace, ns.ID,
		logger.FieldTaxonID, req.ID,
		"depth", len(chain)-1,
	)
	return newResult(ns.projectAll(chain, req.Select), nil), nil
}

// GetChildren returns one page of the direct children of req.ID, optionally
// filtered by name.
func (e *Engine) GetChildren(ctx context.Context, req ChildrenRequest) (*Result, error) {
	ns, err := e.resolve(req.ID, req.NS)
	if err != nil {
		return nil, err
	}
	w, err := newWindow(req.Limit, req.Offset, e.opts.DefaultLimit, e.opts.MaxLimit)
	if err != nil {
		return nil, err
	}

	var text string
	var mode MatchMode
	if req.SearchText != "" {
		if text, mode, err = ParseSearchText(req.SearchText); err != nil {
			return nil, err
		}
	}

	if _, err := fetch(ctx, ns, req.ID); err != nil {
		return nil, err
	}
	children, err := ns.Graph.GetChildren(ctx, req.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "get children of %q", req.ID)
	}

	if text != "" {
		filtered := children[:0:0]
		for _, c := range children {
			if mode.Matches(c.Name, text) {
				filtered = append(filtered, c)
			}
		}
		children = filtered
	}

	page := slice(children, w)
	return newResult(ns.projectAll(page, req.Select), counted(len(children))), nil
}

// GetSiblings returns one page of the other children of req.ID's parent.
// The root has no siblings.
func (e *Engine) GetSiblings(ctx context.Context, req SiblingsRequest) (*Result, error) {
	ns, err := e.resolve(req.ID, req.NS)
	if err != nil {
		return nil, err
	}
	w, err := newWindow(req.Limit, req.Offset, e.opts.DefaultLimit, e.opts.MaxLimit)
	if err != nil {
		return nil, err
	}

	t, err := fetch(ctx, ns, req.ID)
	if err != nil {
		return nil, err
	}
	if t.IsRoot() {
		return nil, errors.NewNotFound("taxon %q is the root of namespace %q and has no siblings", req.ID, ns.ID)
	}

	children, err := ns.Graph.GetChildren(ctx, t.ParentID)
	if err != nil {
		return nil, errors.Wrapf(err, "get children of %q", t.ParentID)
	}
	siblings := make([]Taxon, 0, len(children))
	for _, c := range children {
		if c.ID != t.ID {
			siblings = append(siblings, c)
		}
	}

	page := slice(siblings, w)
	return newResult(ns.projectAll(page, req.Select), counted(len(siblings))), nil
}

// SearchTaxa searches the namespace name field.
func (e *Engine) SearchTaxa(ctx context.Context, req SearchTaxaRequest) (*Result, error) {
	ns, err := e.registry.Resolve(req.NS)
	if err != nil {
		return nil, err
	}
	if len(req.Ranks) > 0 && !ns.HasRank {
		return nil, errors.NewInvalidParams("namespace %q has no rank field; 'ranks' cannot be used", ns.ID)
	}
	return e.search(ctx, ns, req.SearchText, req.Ranks, req.IncludeStrains, req.Select, req.Limit, req.Offset)
}

// SearchSpecies searches species, and strains below them when requested and
// the namespace has any.
func (e *Engine) SearchSpecies(ctx context.Context, req SearchSpeciesRequest) (*Result, error) {
	ns, err := e.registry.Resolve(req.NS)
	if err != nil {
		return nil, err
	}
	if !ns.HasRank {
		return nil, errors.NewInvalidParams("namespace %q has no rank field; species search is unavailable", ns.ID)
	}
	includeStrains := req.IncludeStrains && ns.HasStrains
	return e.search(ctx, ns, req.SearchText, []string{RankSpecies}, includeStrains, req.Select, req.Limit, req.Offset)
}

func (e *Engine) search(ctx context.Context, ns *Namespace, raw string, ranks []string, includeStrains bool, sel []string, limit *int, offset int) (*Result, error) {
	w, err := newWindow(limit, offset, e.opts.DefaultLimit, e.opts.MaxLimit)
	if err != nil {
		return nil, err
	}
	text, mode, err := ParseSearchText(raw)
	if err != nil {
		return nil, err
	}

	q := SearchQuery{
		Text:           text,
		Mode:           mode,
		Ranks:          ranks,
		IncludeStrains: includeStrains && len(ranks) > 0,
		Limit:          w.limit,
		Offset:         w.offset,
	}
	page, err := ns.Search.Search(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "search %q", ns.ID)
	}

	records := make([]Record, 0, len(page.IDs))
	for _, id := range page.IDs {
		t, err := ns.Graph.GetTaxon(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "search index returned %q", id)
		}
		records = append(records, ns.Project(t, sel))
	}

	logger.FromContext(ctx, e.logger).Debugw("Search complete",
		logger.FieldNamespace, ns.ID,
		"mode", mode.String(),
		"text", text,
		logger.FieldCount, len(records),
		logger.FieldTotalCount, page.TotalCount,
	)
	return newResult(records, counted(page.TotalCount)), nil
}
