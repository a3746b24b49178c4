// Package registry implements the named-operation layer every store queries
// through. Each operation binds a name to a collection, a predicate template
// with typed placeholders, and result modifiers. Stores never issue ad-hoc
// predicates: declaring every query up front keeps the query surface
// auditable and lets the backend be swapped without touching callers.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/storage"
)

// OpKind selects what an operation does against its collection.
type OpKind uint8

const (
	FindObject OpKind = iota
	FindObjects
	CreateObject
	UpdateObjects
	DeleteObjects
	TogglePresence
)

// ParamType is the declared type of a placeholder. Binding a value of the
// wrong shape is a validation error, never a silent coercion to nothing.
type ParamType uint8

const (
	TString ParamType = iota
	TInt
	TBool
	TStringSlice
	TIntSlice
	TAny
)

// Cond is one predicate template entry: a document field, a predicate
// operator, and the name + type of the caller parameter bound into it.
// Optional conditions are dropped when the caller omits the parameter.
type Cond struct {
	Field    string
	Op       storage.PredOp
	Param    string
	Type     ParamType
	Optional bool
}

// SetField is one document field template for create/update/toggle
// operations. Now stamps the current time (Unix ms) instead of binding a
// parameter; Const stores a fixed value.
type SetField struct {
	Field    string
	Param    string
	Type     ParamType
	Now      bool
	Const    any
	Optional bool
}

// Operation is a declared, named query.
type Operation struct {
	Collection string
	Kind       OpKind
	Where      []Cond
	Set        []SetField

	// Limit/Skip bind pagination from parameters; FixedLimit applies a
	// constant cap (e.g. the display-density tag cap).
	LimitParam string
	SkipParam  string
	FixedLimit int
}

// Result is an executed operation's outcome. Exactly one of the fields is
// meaningful for a given OpKind.
type Result struct {
	Object  storage.Object // FindObject; nil when no match
	Objects []storage.Object
	Count   int  // UpdateObjects / DeleteObjects
	Created bool // TogglePresence
}

// Registry executes declared operations against the shared backend.
type Registry struct {
	backend storage.Backend
	log     logger.Logger
	ops     map[string]Operation

	// now is swappable for tests.
	now func() time.Time
}

func New(backend storage.Backend, log logger.Logger) *Registry {
	return &Registry{
		backend: backend,
		log:     log,
		ops:     make(map[string]Operation),
		now:     time.Now,
	}
}

// SetNow overrides the clock used for Now fields. Test hook.
func (r *Registry) SetNow(now func() time.Time) { r.now = now }

// RegisterCollection declares a collection schema on the backend. Stores go
// through the registry so they never hold the backend handle directly.
func (r *Registry) RegisterCollection(schema storage.Schema) error {
	return r.backend.Register(schema)
}

// Define declares a named operation. Definitions happen at store
// construction, before any Execute; redefining a name is a programming error.
func (r *Registry) Define(name string, op Operation) error {
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %q already defined", name)
	}
	r.ops[name] = op
	return nil
}

// Execute binds params into the named operation's template and runs it.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", name)
	}

	q, err := r.buildQuery(op, params)
	if err != nil {
		return nil, fmt.Errorf("operation %q: %w", name, err)
	}

	switch op.Kind {
	case FindObject:
		obj, err := r.backend.FindOne(ctx, op.Collection, q)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Object: obj}, nil

	case FindObjects:
		objs, err := r.backend.Find(ctx, op.Collection, q)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Objects: objs}, nil

	case CreateObject:
		doc, err := r.buildDoc(op, params)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		if err := r.backend.Create(ctx, op.Collection, doc); err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Object: doc}, nil

	case UpdateObjects:
		set, err := r.buildDoc(op, params)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		n, err := r.backend.Update(ctx, op.Collection, q, set)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Count: n}, nil

	case DeleteObjects:
		n, err := r.backend.Delete(ctx, op.Collection, q)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Count: n}, nil

	case TogglePresence:
		doc, err := r.buildDoc(op, params)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		created, err := r.backend.Toggle(ctx, op.Collection, doc)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", name, err)
		}
		return &Result{Created: created}, nil

	default:
		return nil, fmt.Errorf("operation %q: unsupported kind %d", name, op.Kind)
	}
}

func (r *Registry) buildQuery(op Operation, params map[string]any) (storage.Query, error) {
	q := storage.Query{}
	for _, cond := range op.Where {
		raw, present := params[cond.Param]
		if !present {
			if cond.Optional {
				continue
			}
			return q, &domain.ValidationError{Param: cond.Param, Reason: "required parameter missing"}
		}
		value, err := bind(cond.Param, cond.Type, raw)
		if err != nil {
			return q, err
		}
		q.Where = append(q.Where, storage.Predicate{Field: cond.Field, Op: cond.Op, Value: value})
	}

	if op.LimitParam != "" {
		if raw, present := params[op.LimitParam]; present {
			n, err := bindInt(op.LimitParam, raw)
			if err != nil {
				return q, err
			}
			q.Limit = int(n)
		}
	}
	if op.SkipParam != "" {
		if raw, present := params[op.SkipParam]; present {
			n, err := bindInt(op.SkipParam, raw)
			if err != nil {
				return q, err
			}
			q.Skip = int(n)
		}
	}
	if op.FixedLimit > 0 && (q.Limit == 0 || q.Limit > op.FixedLimit) {
		q.Limit = op.FixedLimit
	}
	return q, nil
}

func (r *Registry) buildDoc(op Operation, params map[string]any) (storage.Object, error) {
	doc := make(storage.Object, len(op.Set))
	for _, sf := range op.Set {
		switch {
		case sf.Now:
			doc[sf.Field] = r.now().UnixMilli()
		case sf.Const != nil:
			doc[sf.Field] = sf.Const
		default:
			raw, present := params[sf.Param]
			if !present {
				if sf.Optional {
					continue
				}
				return nil, &domain.ValidationError{Param: sf.Param, Reason: "required parameter missing"}
			}
			value, err := bind(sf.Param, sf.Type, raw)
			if err != nil {
				return nil, err
			}
			doc[sf.Field] = value
		}
	}
	return doc, nil
}
