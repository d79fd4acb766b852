package server

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/taxonomy"
)

// handlerFunc runs one operation against its decoded argument object.
type handlerFunc func(ctx context.Context, params json.RawMessage) (*taxonomy.Result, error)

// decodeParams decodes the argument object into T. Unknown keys are ignored.
func decodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return p, errors.NewInvalidParams("'%s' must be a %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return p, errors.WrapInvalidParams(err, "decode params")
	}
	return p, nil
}

// bind adapts a typed operation into a handlerFunc.
func bind[T any](op func(ctx context.Context, p T) (*taxonomy.Result, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (*taxonomy.Result, error) {
		p, err := decodeParams[T](raw)
		if err != nil {
			return nil, err
		}
		return op(ctx, p)
	}
}

// buildMethods returns the operation table served under the service prefix.
func buildMethods(engine *taxonomy.Engine, resolver *taxonomy.Resolver) map[string]handlerFunc {
	return map[string]handlerFunc{
		OpGetTaxon: bind(func(ctx context.Context, p taxonParams) (*taxonomy.Result, error) {
			return engine.GetTaxon(ctx, taxonomy.TaxonRequest{ID: p.ID, NS: p.NS, Select: p.Select})
		}),
		OpGetLineage: bind(func(ctx context.Context, p taxonParams) (*taxonomy.Result, error) {
			return engine.GetLineage(ctx, taxonomy.TaxonRequest{ID: p.ID, NS: p.NS, Select: p.Select})
		}),
		OpGetChildren: bind(func(ctx context.Context, p childrenParams) (*taxonomy.Result, error) {
			return engine.GetChildren(ctx, taxonomy.ChildrenRequest{
				ID:         p.ID,
				NS:         p.NS,
				SearchText: p.SearchText,
				Select:     p.Select,
				Limit:      p.Limit,
				Offset:     p.Offset,
			})
		}),
		OpGetSiblings: bind(func(ctx context.Context, p siblingsParams) (*taxonomy.Result, error) {
			return engine.GetSiblings(ctx, taxonomy.SiblingsRequest{
				ID:     p.ID,
				NS:     p.NS,
				Select: p.Select,
				Limit:  p.Limit,
				Offset: p.Offset,
			})
		}),
		OpSearchTaxa: bind(func(ctx context.Context, p searchParams) (*taxonomy.Result, error) {
			return engine.SearchTaxa(ctx, taxonomy.SearchTaxaRequest{
				NS:             p.NS,
				SearchText:     p.SearchText,
				Ranks:          p.Ranks,
				IncludeStrains: p.IncludeStrains,
				Select:         p.Select,
				Limit:          p.Limit,
				Offset:         p.Offset,
			})
		}),
		OpSearchSpecies: bind(func(ctx context.Context, p searchParams) (*taxonomy.Result, error) {
			return engine.SearchSpecies(ctx, taxonomy.SearchSpeciesRequest{
				NS:             p.NS,
				SearchText:     p.SearchText,
				IncludeStrains: p.IncludeStrains,
				Select:         p.Select,
				Limit:          p.Limit,
				Offset:         p.Offset,
			})
		}),
		OpGetAssociatedWSObjects: bind(func(ctx context.Context, p associatedObjectsParams) (*taxonomy.Result, error) {
			return resolver.GetAssociatedObjects(ctx, taxonomy.AssociatedObjectsRequest{ID: p.ID, NS: p.NS, TS: p.TS})
		}),
		OpGetTaxonFromWSObj: bind(func(ctx context.Context, p taxonFromObjectParams) (*taxonomy.Result, error) {
			return resolver.GetTaxonFromObject(ctx, taxonomy.TaxonFromObjectRequest{
				ObjRef: p.ObjRef,
				NS:     p.NS,
				TS:     p.TS,
				Select: p.Select,
			})
		}),
	}
}

// Call runs operation op in-process with a JSON argument object, bypassing
// HTTP. The error kinds match what the gateway would report.
func (s *Server) Call(ctx context.Context, op string, args json.RawMessage) (*taxonomy.Result, error) {
	method, ok := s.methods[op]
	if !ok {
		return nil, errors.NewUnknownMethod(op)
	}
	args = bytes.TrimSpace(args)
	if len(args) == 0 || args[0] != '{' {
		return nil, errors.NewInvalidParams("arguments must be a JSON object")
	}
	return method(ctx, args)
}
