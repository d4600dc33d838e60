package fixture

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// Doc is the YAML document shape a fixture file unmarshals into: a
// named procedure, its parameter/return locations, an optional calling
// convention signature, and the fragment graph itself.
type Doc struct {
	Name      string         `yaml:"name"`
	Params    []string       `yaml:"params"`
	Returns   []string       `yaml:"returns"`
	Signature *SignatureSpec `yaml:"signature"`
	Fragments []FragmentSpec `yaml:"fragments"`
	Exit      string         `yaml:"exit"`
}

// SignatureSpec mirrors proc.Signature in the mini-language: Params and
// Return hold type strings (see ParseType), Preserved holds bare
// location strings.
type SignatureSpec struct {
	Convention string   `yaml:"convention"`
	Params     []string `yaml:"params"`
	Return     string   `yaml:"return"`
	Preserved  []string `yaml:"preserved"`
	Ellipsis   bool     `yaml:"ellipsis"`
}

// FragmentSpec is one fragment: its statements, in order, and the
// outgoing edges it needs once every fragment in the document exists.
type FragmentSpec struct {
	Label string     `yaml:"label"`
	Stmts []StmtSpec `yaml:"stmts"`
	Edges []EdgeSpec `yaml:"edges"`
}

// EdgeSpec names one outgoing edge by target label. Kind is one of
// "fallthrough" (default), "taken", "case", or "call-return"; Case is
// meaningful only for "case".
type EdgeSpec struct {
	To   string `yaml:"to"`
	Kind string `yaml:"kind"`
	Case int64  `yaml:"case"`
}

// ArgSpec is one argument- or define-assign of a call statement.
type ArgSpec struct {
	Lhs string `yaml:"lhs"`
	Rhs string `yaml:"rhs"`
	Ty  string `yaml:"ty"`
}

// StmtSpec is a tagged union over every statement kind the builder
// knows how to construct, discriminated by Op. Only the fields relevant
// to Op need be set; the rest are ignored.
type StmtSpec struct {
	Op string `yaml:"op"`

	Lhs string `yaml:"lhs"`
	Rhs string `yaml:"rhs"`
	Ty  string `yaml:"ty"`

	Cond        string `yaml:"cond"`
	Taken       string `yaml:"taken"`
	Fallthrough string `yaml:"fallthrough"`

	Target string `yaml:"target"`
	Dest   string `yaml:"dest"`

	SigName      string    `yaml:"sig_name"`
	Ellipsis     bool      `yaml:"ellipsis"`
	StackPointer string    `yaml:"stack_pointer"`
	Args         []ArgSpec `yaml:"args"`
	Defs         []ArgSpec `yaml:"defs"`

	ReturnDefs []ArgSpec `yaml:"return_defs"`
	Modifieds  []string  `yaml:"modifieds"`
}

// Parse unmarshals a fixture document from YAML bytes and builds the
// procedure it describes.
func Parse(data []byte) (*proc.Procedure, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "fixture: invalid YAML")
	}
	return Build(&doc)
}

// Build materializes doc into a *proc.Procedure: every fragment is
// created first so statements anywhere in the document can name any
// fragment as a branch/goto target, then statements are installed in
// document order (so AddStmt's auto-numbering matches the document's
// reading order), and finally the edges are added - a
// fixture author writes edges explicitly, the same way hand-built CFGs
// elsewhere in this codebase do, rather than having them inferred from
// the terminal statement.
func Build(doc *Doc) (*proc.Procedure, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("fixture: document has no name")
	}

	cfg := frag.NewCFG()
	frags := make(map[string]*frag.Fragment, len(doc.Fragments))
	for _, fs := range doc.Fragments {
		if fs.Label == "" {
			return nil, fmt.Errorf("fixture: fragment with empty label")
		}
		if _, dup := frags[fs.Label]; dup {
			return nil, fmt.Errorf("fixture: duplicate fragment label %q", fs.Label)
		}
		frags[fs.Label] = cfg.CreateFragment(fs.Label)
	}

	lookup := func(label string) (*frag.Fragment, error) {
		f, ok := frags[label]
		if !ok {
			return nil, fmt.Errorf("fixture: fragment %q referenced but not declared", label)
		}
		return f, nil
	}

	for _, fs := range doc.Fragments {
		f := frags[fs.Label]
		for i, ss := range fs.Stmts {
			s, err := buildStmt(ss, lookup)
			if err != nil {
				return nil, fmt.Errorf("fixture: fragment %q stmt %d: %w", fs.Label, i, err)
			}
			f.AddStmt(s)
		}
	}

	for _, fs := range doc.Fragments {
		from := frags[fs.Label]
		for _, es := range fs.Edges {
			to, err := lookup(es.To)
			if err != nil {
				return nil, err
			}
			switch es.Kind {
			case "", "fallthrough":
				cfg.AddEdge(from, to, frag.EdgeFallThrough)
			case "taken":
				cfg.AddEdge(from, to, frag.EdgeTaken)
			case "call-return":
				cfg.AddEdge(from, to, frag.EdgeCallReturn)
			case "case":
				cfg.AddSwitchCaseEdge(from, to, es.Case)
			default:
				return nil, fmt.Errorf("fixture: fragment %q: unknown edge kind %q", fs.Label, es.Kind)
			}
		}
	}

	if doc.Exit != "" {
		exit, err := lookup(doc.Exit)
		if err != nil {
			return nil, err
		}
		cfg.Exit = exit
	}

	p := proc.NewProcedure(doc.Name, cfg)

	for _, name := range doc.Params {
		loc, err := ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("fixture: param %q: %w", name, err)
		}
		p.Params = append(p.Params, loc)
	}
	for _, name := range doc.Returns {
		loc, err := ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("fixture: return %q: %w", name, err)
		}
		p.Returns = append(p.Returns, loc)
	}

	if doc.Signature != nil {
		sig, err := buildSignature(doc.Signature)
		if err != nil {
			return nil, fmt.Errorf("fixture: signature: %w", err)
		}
		p.Signature = *sig
	}

	return p, nil
}

func buildSignature(s *SignatureSpec) (*proc.Signature, error) {
	out := &proc.Signature{HasEllipsis: s.Ellipsis, Preserved: s.Preserved}
	switch s.Convention {
	case "", "cdecl":
		out.Convention = proc.ConvCdecl
	case "stdcall":
		out.Convention = proc.ConvStdcall
	case "fastcall":
		out.Convention = proc.ConvFastcall
	default:
		return nil, fmt.Errorf("unknown calling convention %q", s.Convention)
	}
	for _, t := range s.Params {
		ty, err := ParseType(t)
		if err != nil {
			return nil, err
		}
		out.Params = append(out.Params, ty)
	}
	ret, err := ParseType(s.Return)
	if err != nil {
		return nil, err
	}
	out.Return = ret
	return out, nil
}

type fragLookup func(label string) (*frag.Fragment, error)

func buildStmt(ss StmtSpec, lookup fragLookup) (stmt.Stmt, error) {
	switch ss.Op {
	case "assign":
		lhs, rhs, ty, err := parseAssignFields(ss)
		if err != nil {
			return nil, err
		}
		return stmt.NewAssign(lhs, rhs, ty), nil

	case "implicit":
		lhs, err := ParseExpr(ss.Lhs)
		if err != nil {
			return nil, err
		}
		return stmt.NewImplicit(lhs), nil

	case "boolassign":
		lhs, err := ParseExpr(ss.Lhs)
		if err != nil {
			return nil, err
		}
		cond, err := ParseExpr(ss.Cond)
		if err != nil {
			return nil, err
		}
		return stmt.NewBoolAssign(lhs, cond), nil

	case "branch":
		cond, err := ParseExpr(ss.Cond)
		if err != nil {
			return nil, err
		}
		taken, err := lookup(ss.Taken)
		if err != nil {
			return nil, err
		}
		fall, err := lookup(ss.Fallthrough)
		if err != nil {
			return nil, err
		}
		return stmt.NewBranch(cond, taken, fall), nil

	case "goto":
		if ss.Target != "" {
			t, err := lookup(ss.Target)
			if err != nil {
				return nil, err
			}
			return stmt.NewGoto(t), nil
		}
		if ss.Dest != "" {
			d, err := ParseExpr(ss.Dest)
			if err != nil {
				return nil, err
			}
			return stmt.NewComputedGoto(d), nil
		}
		return stmt.NewGoto(nil), nil

	case "return":
		r := stmt.NewReturn()
		for _, d := range ss.ReturnDefs {
			lhs, rhs, _, err := parseAssignFields(StmtSpec{Lhs: d.Lhs, Rhs: d.Rhs})
			if err != nil {
				return nil, err
			}
			r.Defs = append(r.Defs, stmt.ReturnDefine{Lhs: lhs, Val: rhs})
		}
		for _, m := range ss.Modifieds {
			e, err := ParseExpr(m)
			if err != nil {
				return nil, err
			}
			r.Modifieds = append(r.Modifieds, e)
		}
		return r, nil

	case "call":
		return buildCall(ss)

	default:
		return nil, fmt.Errorf("unknown statement op %q", ss.Op)
	}
}

func parseAssignFields(ss StmtSpec) (lhs, rhs expr.Expr, ty dtype.Type, err error) {
	l, err := ParseExpr(ss.Lhs)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := ParseExpr(ss.Rhs)
	if err != nil {
		return nil, nil, nil, err
	}
	t, err := ParseType(ss.Ty)
	if err != nil {
		return nil, nil, nil, err
	}
	if ss.Ty == "" {
		t = nil
	}
	return l, r, t, nil
}

func buildCall(ss StmtSpec) (stmt.Stmt, error) {
	dest, err := ParseExpr(ss.Dest)
	if err != nil {
		return nil, fmt.Errorf("call dest: %w", err)
	}
	c := stmt.NewCall(dest)
	c.SigName = ss.SigName
	c.HasEllipsis = ss.Ellipsis
	if ss.StackPointer != "" {
		sp, err := ParseExpr(ss.StackPointer)
		if err != nil {
			return nil, fmt.Errorf("call stack_pointer: %w", err)
		}
		c.StackPointer = sp
	}
	for i, a := range ss.Args {
		lhs, rhs, ty, err := parseAssignFields(StmtSpec{Lhs: a.Lhs, Rhs: a.Rhs, Ty: a.Ty})
		if err != nil {
			return nil, fmt.Errorf("call arg %d: %w", i, err)
		}
		c.AddArgument(stmt.NewAssign(lhs, rhs, ty))
	}
	for i, d := range ss.Defs {
		lhs, rhs, ty, err := parseAssignFields(StmtSpec{Lhs: d.Lhs, Rhs: d.Rhs, Ty: d.Ty})
		if err != nil {
			return nil, fmt.Errorf("call def %d: %w", i, err)
		}
		c.AddDefine(stmt.NewAssign(lhs, rhs, ty))
	}
	return c, nil
}
