// Package picker implements the behaviour shared by every dictionary-backed
// select control: resolve the dictionary, render rows, apply clicks through
// the selection engine and report the new value.
package picker

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/refdict/internal/domain"
	"github.com/heartmarshall/refdict/internal/search"
	"github.com/heartmarshall/refdict/internal/selection"
	"github.com/heartmarshall/refdict/internal/treeindex"
)

type resolver interface {
	Resolve(ctx context.Context, code string) (domain.DictionaryCacheEntry, error)
}

type changeRecorder interface {
	IncSelectionChange(multiple bool)
}

// Value is a picker's external value. Single-select pickers hold at most one code.
type Value struct {
	Codes []string
}

// Single returns the value holding code, or the empty value for "".
func Single(code string) Value {
	if code == "" {
		return Value{}
	}
	return Value{Codes: []string{code}}
}

// Many returns the value holding codes.
func Many(codes ...string) Value { return Value{Codes: codes} }

// Code returns the first code, which is the whole value in single-select mode.
func (v Value) Code() string {
	if len(v.Codes) == 0 {
		return ""
	}
	return v.Codes[0]
}

// IsEmpty reports whether nothing is selected.
func (v Value) IsEmpty() bool { return len(v.Codes) == 0 }

// Props configures a picker.
type Props struct {
	Value          Value
	OnChange       func(next Value)
	Multiple       bool
	DictionaryCode string
	// Expanded lists the codes initially expanded by the user.
	Expanded []string
}

// Row is one visible line of the picker tree.
type Row struct {
	Code        string
	Label       string
	IconRef     string
	Depth       int
	State       selection.State
	HasChildren bool
	Expanded    bool
}

// Service opens pickers.
type Service struct {
	log      *slog.Logger
	resolver resolver
	rec      changeRecorder
}

// NewService creates a picker service. rec may be nil.
func NewService(logger *slog.Logger, r resolver, rec changeRecorder) *Service {
	return &Service{
		log:      logger.With("service", "picker"),
		resolver: r,
		rec:      rec,
	}
}

// Open resolves the dictionary and returns a ready picker. A resolve failure
// is logged and yields a degraded picker that has no tree and labels codes
// with the codes themselves; Open itself never fails.
func (s *Service) Open(ctx context.Context, props Props) *Picker {
	p := &Picker{
		props:     props,
		rec:       s.rec,
		expansion: search.NewExpansion(props.Expanded...),
	}

	entry, err := s.resolver.Resolve(ctx, props.DictionaryCode)
	if err != nil {
		s.log.WarnContext(ctx, "dictionary unavailable, picker degraded",
			slog.String("dictionary", props.DictionaryCode),
			slog.String("error", err.Error()),
		)
		p.err = err
		p.index = treeindex.Build(nil)
	} else {
		p.index = treeindex.Build(entry.Tree)
		p.name = entry.DictionaryName
	}

	p.engine = selection.NewEngine(p.index, props.Multiple)
	p.sel = p.engine.Sanitize(selection.Of(props.Value.Codes...))
	p.filtered = search.Filter("", p.index.Forest())
	return p
}
