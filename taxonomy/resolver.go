package taxonomy

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// Resolver answers time-scoped lookups between taxa and workspace objects.
type Resolver struct {
	registry *Registry
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewResolver creates a resolver over the namespaces of registry.
func NewResolver(registry *Registry, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{registry: registry, logger: log, now: time.Now}
}

// AssociatedObjectsRequest lists the objects linked to a taxon at TS.
type AssociatedObjectsRequest struct {
	ID string
	NS string
	// TS is epoch milliseconds; nil means now.
	TS *int64
}

// TaxonFromObjectRequest finds the taxa an object was linked to at TS.
type TaxonFromObjectRequest struct {
	ObjRef string
	NS     string
	TS     *int64
	Select []string
}

func (r *Resolver) linkedNamespace(ns string) (*Namespace, error) {
	desc, err := r.registry.Resolve(ns)
	if err != nil {
		return nil, err
	}
	if desc.Associations == nil {
		return nil, errors.NewInvalidParams("namespace %q does not index workspace objects", ns)
	}
	return desc, nil
}

func (r *Resolver) timestamp(ts *int64) (int64, error) {
	if ts == nil {
		return r.now().UnixMilli(), nil
	}
	if *ts < 0 {
		return 0, errors.NewInvalidParams("'ts' must be non-negative, got %d", *ts)
	}
	return *ts, nil
}

// GetAssociatedObjects returns every object associated with taxon req.ID as
// of req.TS, annotated with object and workspace metadata.
func (r *Resolver) GetAssociatedObjects(ctx context.Context, req AssociatedObjectsRequest) (*Result, error) {
	if req.ID == "" {
		return nil, errors.NewInvalidParams("'id' is required")
	}
	ns, err := r.linkedNamespace(req.NS)
	if err != nil {
		return nil, err
	}
	ts, err := r.timestamp(req.TS)
	if err != nil {
		return nil, err
	}

	var assocs []Association
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := fetch(gctx, ns, req.ID)
		return err
	})
	g.Go(func() error {
		var err error
		assocs, err = ns.Associations.ObjectsForTaxon(gctx, req.ID, ts)
		return errors.Wrapf(err, "associations of taxon %q", req.ID)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assocs = latestPerObject(assocs, ts)
	refs := make([]string, len(assocs))
	for i, a := range assocs {
		refs[i] = a.ObjRef
	}
	objects, err := ns.Objects.GetObjects(ctx, refs)
	if err != nil {
		return nil, errors.Wrap(err, "load object metadata")
	}

	log := logger.FromContext(ctx, r.logger)
	records := make([]Record, 0, len(assocs))
	for _, a := range assocs {
		obj, ok := objects[a.ObjRef]
		if !ok {
			log.Warnw("Associated object has no metadata",
				logger.FieldNamespace, ns.ID,
				logger.FieldObjRef, a.ObjRef,
			)
			obj = WorkspaceObject{Ref: a.ObjRef}
		}
		assoc := Record{"created": a.Created}
		if a.Expired != 0 {
			assoc["expired"] = a.Expired
		}
		records = append(records, Record{"ws_obj": obj, "association": assoc})
	}
	return newResult(records, counted(len(records))), nil
}

// GetTaxonFromObject returns the taxa whose most recent association with
// req.ObjRef holds at req.TS.
func (r *Resolver) GetTaxonFromObject(ctx context.Context, req TaxonFromObjectRequest) (*Result, error) {
	if req.ObjRef == "" {
		return nil, errors.NewInvalidParams("'obj_ref' is required")
	}
	ref, err := ParseObjRef(req.ObjRef)
	if err != nil {
		return nil, err
	}
	ns, err := r.linkedNamespace(req.NS)
	if err != nil {
		return nil, err
	}
	ts, err := r.timestamp(req.TS)
	if err != nil {
		return nil, err
	}

	assocs, err := ns.Associations.TaxaForObject(ctx, ref.String(), ts)
	if err != nil {
		return nil, errors.Wrapf(err, "associations of object %q", ref)
	}
	assocs = latestSnapshot(assocs, ts)
	if len(assocs) == 0 {
		return nil, errors.NewNotFound("no taxon associated with %q in namespace %q at %d", ref, ns.ID, ts)
	}

	records := make([]Record, 0, len(assocs))
	for _, a := range assocs {
		t, err := fetch(ctx, ns, a.TaxonID)
		if err != nil {
			return nil, err
		}
		records = append(records, ns.Project(t, req.Select))
	}
	return newResult(records, nil), nil
}

// latestPerObject keeps, for each object, the valid association with the
// greatest Created, ordered by obj_ref.
func latestPerObject(assocs []Association, ts int64) []Association {
	best := make(map[string]Association, len(assocs))
	for _, a := range assocs {
		if !a.ValidAt(ts) {
			continue
		}
		if cur, ok := best[a.ObjRef]; !ok || a.Created > cur.Created {
			best[a.ObjRef] = a
		}
	}
	out := make([]Association, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjRef < out[j].ObjRef })
	return out
}

// latestSnapshot keeps the valid associations sharing the greatest Created,
// ordered by taxon id.
func latestSnapshot(assocs []Association, ts int64) []Association {
	var newest int64 = -1
	for _, a := range assocs {
		if a.ValidAt(ts) && a.Created > newest {
			newest = a.Created
		}
	}
	var out []Association
	seen := make(map[string]bool)
	for _, a := range assocs {
		if a.ValidAt(ts) && a.Created == newest && !seen[a.TaxonID] {
			seen[a.TaxonID] = true
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaxonID < out[j].TaxonID })
	return out
}
