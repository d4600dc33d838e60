package ssadestroy

import (
	"fmt"
	"strings"

	"decompcore/internal/diag"
	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/ssabuild"
	"decompcore/internal/stmt"
)

// destroyer carries every naming decision SSA destruction accumulates
// across its steps (spec.md §4.7): which subscripted references got a
// fresh local, which base locations are parameters, and the default
// names assigned to every definition neither of those two mechanisms
// ever touched.
type destroyer struct {
	cfg  *frag.CFG
	proc *proc.Procedure

	stmtFrag map[string]*frag.Fragment

	named       map[string]string     // SubscriptRef.String() -> local/param name (non-implicit refs only)
	isParamName map[string]bool       // name -> true if it names a parameter
	localTypes  map[string]dtype.Type // name -> type recorded when the name was created

	paramNames map[string]string // bare base-location String() -> "argN"
	baseNames  map[string]string // bare base-location String() -> default name, for untouched defs

	usedNames    map[string]bool
	localCounter int
	tempCounter  int
}

func newDestroyer(p *proc.Procedure) *destroyer {
	return &destroyer{
		cfg:         p.CFG,
		proc:        p,
		stmtFrag:    buildStmtFragMap(p.CFG),
		named:       map[string]string{},
		isParamName: map[string]bool{},
		localTypes:  map[string]dtype.Type{},
		paramNames:  map[string]string{},
		baseNames:   map[string]string{},
		usedNames:   map[string]bool{},
	}
}

func buildStmtFragMap(cfg *frag.CFG) map[string]*frag.Fragment {
	m := map[string]*frag.Fragment{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			m[s.ID()] = f
		}
	}
	return m
}

// Destroy rewrites p's SSA-form CFG into non-SSA form (spec.md §4.7):
// resolving every subscripted reference to a concrete local or parameter
// name, then removing, converting or copy-expanding every φ-assign.
// Requires SSA construction (internal/ssabuild.Build) to have already
// run; returns a diag.KindInvariantViolation if it has not.
func Destroy(p *proc.Procedure) error {
	if ok, violations := ssabuild.AllRefsHaveDefs(p.CFG); !ok {
		return diag.New(diag.KindInvariantViolation, p.Name, "ssa-destruction",
			"SSA destruction requires every use to already be a subscripted reference: "+strings.Join(violations, "; "))
	}

	d := newDestroyer(p)
	ig := BuildInterference(p.CFG)
	pu := BuildPhiUnites(p.CFG)

	d.computeParamNames()
	d.renameInterfering(ig)
	d.propagatePhiUnites(pu, ig)
	d.nameParameterPhis()

	d.stripAll()
	d.rewritePhis()
	d.populateSymbolMap()

	return nil
}

// computeParamNames assigns every tracked parameter a positional display
// name ("arg0", "arg1", ...), keyed by its bare base-location string -
// this is the name an implicit ("live on entry") reference to that
// location resolves to throughout destruction.
func (d *destroyer) computeParamNames() {
	for i, p := range d.proc.Params {
		name := fmt.Sprintf("arg%d", i)
		d.paramNames[p.String()] = name
		d.isParamName[name] = true
		d.usedNames[name] = true
	}
}

// lookupNamed returns the name step 1/2/3 has already assigned to ref, if
// any. An implicit reference is never entered into named directly - its
// name always comes from paramNames via finalName - so lookupNamed
// reports false for one, which is exactly what callers need to decide
// whether a rename target still needs a name.
func (d *destroyer) lookupNamed(r *expr.SubscriptRef) (string, bool) {
	if r.IsImplicit() {
		return "", false
	}
	n, ok := d.named[r.String()]
	return n, ok
}

func (d *destroyer) setNamed(r *expr.SubscriptRef, name string) {
	if r.IsImplicit() {
		return
	}
	d.named[r.String()] = name
}

// renameInterfering is destruction's step 1: for every interference edge
// whose endpoints don't already carry distinct names, pick one endpoint
// and allocate it a fresh local. Preference order - never rename an
// implicit (parameter-placeholder) reference; otherwise prefer renaming
// a φ-destination over a non-φ endpoint - matches
// FromSSAFormPass::execute's candidate selection.
func (d *destroyer) renameInterfering(ig *ConnectionGraph) {
	for _, e := range ig.Edges() {
		r1, r2 := e[0], e[1]
		n1, ok1 := d.lookupNamed(r1)
		n2, ok2 := d.lookupNamed(r2)
		if ok1 && ok2 && n1 != n2 {
			continue
		}

		rename := chooseRenameTarget(r1, r2)
		if rename == nil {
			continue
		}
		ty := defTypeOfRef(rename)
		name := d.newLocalName(ty)
		d.setNamed(rename, name)
	}
}

func chooseRenameTarget(r1, r2 *expr.SubscriptRef) *expr.SubscriptRef {
	switch {
	case r1.IsImplicit():
		return r2
	case r2.IsImplicit():
		return r1
	case isPhiRef(r1):
		return r1
	case isPhiRef(r2):
		return r2
	default:
		return r1
	}
}

// propagatePhiUnites is destruction's step 2: for every pu edge with
// exactly one named endpoint, propagate that name to the other endpoint
// - provided they don't interfere, and provided skipPhiUniteForCollapse doesn't
// veto it to preserve a later all-operands-agree φ collapse.
func (d *destroyer) propagatePhiUnites(pu, ig *ConnectionGraph) {
	for _, e := range pu.Edges() {
		r1, r2 := e[0], e[1]
		n1, ok1 := d.lookupNamed(r1)
		n2, ok2 := d.lookupNamed(r2)
		if ok1 == ok2 {
			continue
		}

		var namedRef, unnamedRef *expr.SubscriptRef
		var name string
		if ok1 {
			namedRef, unnamedRef, name = r1, r2, n1
		} else {
			namedRef, unnamedRef, name = r2, r1, n2
		}
		if unnamedRef.IsImplicit() {
			continue
		}
		if ig.IsConnected(namedRef, unnamedRef) {
			continue
		}
		if d.skipPhiUniteForCollapse(namedRef, unnamedRef) {
			continue
		}
		d.setNamed(unnamedRef, name)
	}
}

// skipPhiUniteForCollapse implements the documented φ-unite exception: when
// namedRef is itself a φ-destination, unnamedRef is one of that φ's
// operands, and every *other* operand already agrees on one common name,
// propagating namedRef's name onto unnamedRef now would prevent the
// later all-operands-agree φ-to-assign collapse (spec.md §4.7's "φ to
// ordinary assign when all operands share a base location").
func (d *destroyer) skipPhiUniteForCollapse(namedRef, unnamedRef *expr.SubscriptRef) bool {
	phi, ok := namedRef.Def.(*stmt.Phi)
	if !ok {
		return false
	}
	lhsLoc, ok := phi.Lhs.(*expr.Location)
	if !ok {
		return false
	}
	base := namedRef.Base()
	if base == nil || !lhsLoc.BaseEqual(base) {
		return false
	}

	isOperand := false
	commonName := ""
	haveCommon := false
	agree := true
	for _, v := range phi.Args {
		opRef, ok := v.(*expr.SubscriptRef)
		if !ok {
			continue
		}
		if opRef.String() == unnamedRef.String() {
			isOperand = true
			continue
		}
		n, ok := d.lookupNamed(opRef)
		if !ok {
			continue
		}
		if !haveCommon {
			commonName, haveCommon = n, true
		} else if n != commonName {
			agree = false
		}
	}
	return isOperand && haveCommon && agree
}

// nameParameterPhis is destruction's step 3: a φ-destination still
// unnamed after steps 1-2 inherits a parameter's display name when every
// implicit operand it has agrees on one. Grounded on nameParameterPhis in
// FromSSAFormPass.cpp.
func (d *destroyer) nameParameterPhis() {
	for _, f := range d.cfg.Fragments() {
		for _, s := range f.Stmts {
			phi, ok := s.(*stmt.Phi)
			if !ok {
				continue
			}
			lhsLoc, ok := phi.Lhs.(*expr.Location)
			if !ok {
				continue
			}
			lhsRef := expr.RefOf(lhsLoc.Clone(), phi)
			if _, ok := d.lookupNamed(lhsRef); ok {
				continue
			}

			found := false
			multiple := false
			var name string
			for _, v := range phi.Args {
				opRef, ok := v.(*expr.SubscriptRef)
				if !ok || !opRef.IsImplicit() {
					continue
				}
				opLoc := opRef.Base()
				if opLoc == nil {
					continue
				}
				pn, ok := d.paramNames[opLoc.String()]
				if !ok {
					continue
				}
				if !found {
					name, found = pn, true
				} else if pn != name {
					multiple = true
				}
			}
			if !found || multiple {
				continue
			}
			d.named[lhsRef.String()] = name
			d.isParamName[name] = true
		}
	}
}

// finalName resolves any reference - named by steps 1-3, an implicit
// parameter reference, or neither - to its final display name. A
// reference untouched by every naming step simply keeps its base
// location's default name: no conflict ever forced it into a fresh
// local.
func (d *destroyer) finalName(ref *expr.SubscriptRef) (name string, isParam bool) {
	if n, ok := d.named[ref.String()]; ok {
		return n, d.isParamName[n]
	}
	loc := ref.Base()
	if loc == nil {
		return sanitizeName(ref.Sub.String()), false
	}
	baseKey := loc.String()
	if n, ok := d.paramNames[baseKey]; ok {
		return n, true
	}
	return d.defaultName(loc), false
}

func (d *destroyer) defaultName(loc *expr.Location) string {
	key := loc.String()
	if n, ok := d.baseNames[key]; ok {
		return n
	}

	var n string
	switch loc.LKind {
	case expr.LocLocal, expr.LocGlobal, expr.LocParam:
		n = loc.Name
	case expr.LocTemp:
		n = loc.TempID
	case expr.LocRegister:
		if idx, ok := constIndex(loc.RegIndex); ok {
			n = fmt.Sprintf("reg%d", idx)
		}
	}
	if n == "" {
		n = sanitizeName(key)
	}
	for d.usedNames[n] {
		n = fmt.Sprintf("%s_%d", n, d.localCounter)
		d.localCounter++
	}
	d.baseNames[key] = n
	d.usedNames[n] = true
	return n
}

func constIndex(e expr.Expr) (int64, bool) {
	c, ok := e.(*expr.Const)
	if !ok || c.CKind != expr.ConstInt {
		return 0, false
	}
	return c.I, true
}

// sanitizeName turns an arbitrary location textual form ("m[(ebp - 4)]")
// into something that reads like a source identifier, stripping the
// characters a location's String() uses for structure.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "loc"
	}
	return out
}

func (d *destroyer) newLocalName(ty dtype.Type) string {
	var name string
	for {
		name = fmt.Sprintf("local%d", d.localCounter)
		d.localCounter++
		if !d.usedNames[name] {
			break
		}
	}
	d.usedNames[name] = true
	d.localTypes[name] = ty
	return name
}

func (d *destroyer) newTempName() string {
	var name string
	for {
		name = fmt.Sprintf("tmp%d", d.tempCounter)
		d.tempCounter++
		if !d.usedNames[name] {
			break
		}
	}
	d.usedNames[name] = true
	return name
}

// makeLocation builds the flat, non-subscripted location a final name
// resolves to, carrying forward any type recorded when that name was
// first allocated.
func (d *destroyer) makeLocation(name string, isParam bool) *expr.Location {
	var loc *expr.Location
	if isParam {
		loc = expr.Param(name)
	} else {
		loc = expr.Local(name)
	}
	if ty, ok := d.localTypes[name]; ok {
		loc.Ty = ty
	}
	return loc
}

func (d *destroyer) replaceDefine(e expr.Expr, s stmt.Stmt) expr.Expr {
	loc, ok := e.(*expr.Location)
	if !ok {
		return e
	}
	ref := expr.RefOf(loc.Clone(), s)
	name, isParam := d.finalName(ref)
	return d.makeLocation(name, isParam)
}

// stripModifier rewrites every SubscriptRef it visits into the flat,
// final-named location it resolves to - spec.md §4.7's closing
// invariant, "no subscripted-references remain; every non-implicit
// location is a named local or parameter".
type stripModifier struct {
	expr.BaseModifier
	d *destroyer
}

func (m *stripModifier) ModifySubscriptRef(r *expr.SubscriptRef) expr.Expr {
	name, isParam := m.d.finalName(r)
	return m.d.makeLocation(name, isParam)
}

// stripAll rewrites every non-φ statement's uses and defines from
// subscripted references and their bare-location definitions into flat
// named locals/parameters. φ-assigns are deliberately left alone here -
// rewritePhis resolves their lhs/operands directly from the same naming
// tables before replacing or removing them.
func (d *destroyer) stripAll() {
	m := &stripModifier{d: d}
	for _, f := range d.cfg.Fragments() {
		for _, s := range f.Stmts {
			d.stripStatement(s, m)
		}
	}
}

func (d *destroyer) stripStatement(s stmt.Stmt, m *stripModifier) {
	switch n := s.(type) {
	case *stmt.Assign:
		n.Rhs = n.Rhs.Modify(m)
		n.Lhs = d.replaceDefine(n.Lhs, s)
	case *stmt.Implicit:
		n.Lhs = d.replaceDefine(n.Lhs, s)
	case *stmt.BoolAssign:
		n.Cond = n.Cond.Modify(m)
		n.Lhs = d.replaceDefine(n.Lhs, s)
	case *stmt.Branch:
		n.Cond = n.Cond.Modify(m)
	case *stmt.Goto:
		if n.IsComputed() {
			n.Dest = n.Dest.Modify(m)
		}
	case *stmt.Call:
		for _, a := range n.Args {
			a.Rhs = a.Rhs.Modify(m)
		}
		if n.IsComputed() {
			n.SetDest(n.Dest.Modify(m))
		}
		for _, def := range n.Defs {
			def.Lhs = d.replaceDefine(def.Lhs, s)
		}
	case *stmt.Return:
		for i := range n.Defs {
			n.Defs[i].Val = n.Defs[i].Val.Modify(m)
			n.Defs[i].Lhs = d.replaceDefine(n.Defs[i].Lhs, s)
		}
		for i := range n.Modifieds {
			n.Modifieds[i] = n.Modifieds[i].Modify(m)
		}
	case *stmt.Phi:
		// handled by rewritePhis, which still needs the original
		// SubscriptRef-valued Args to find each operand's defining
		// statement.
	}
}

// phiOperand is one resolved operand of a φ-assign being rewritten: its
// final name/kind, and the original statement that defines it (nil for
// an implicit, "live on entry" operand).
type phiOperand struct {
	name    string
	isParam bool
	defStmt stmt.Stmt
}

// rewritePhis is destruction's step 5: remove, convert-to-assign, or
// copy-expand every remaining φ-assign, per spec.md §4.7 / scenario S4
// (collapse) and S5 (copy-expansion).
func (d *destroyer) rewritePhis() {
	for _, f := range d.cfg.Fragments() {
		var phis []*stmt.Phi
		for _, s := range f.Stmts {
			if phi, ok := s.(*stmt.Phi); ok {
				phis = append(phis, phi)
			}
		}
		for _, phi := range phis {
			d.rewriteOnePhi(f, phi)
		}
	}
}

func (d *destroyer) rewriteOnePhi(f *frag.Fragment, phi *stmt.Phi) {
	lhsLoc, ok := phi.Lhs.(*expr.Location)
	if !ok {
		f.RemoveStmt(phi)
		return
	}
	lhsRef := expr.RefOf(lhsLoc.Clone(), phi)
	lhsName, lhsIsParam := d.finalName(lhsRef)

	var ops []phiOperand
	for _, v := range phi.Args {
		ref, ok := v.(*expr.SubscriptRef)
		if !ok {
			continue
		}
		name, isParam := d.finalName(ref)
		var defStmt stmt.Stmt
		if !ref.IsImplicit() {
			defStmt, _ = ref.Def.(stmt.Stmt)
		}
		ops = append(ops, phiOperand{name: name, isParam: isParam, defStmt: defStmt})
	}

	if len(ops) == 0 {
		f.RemoveStmt(phi)
		return
	}

	allEqualLhs := true
	for _, o := range ops {
		if o.name != lhsName {
			allEqualLhs = false
			break
		}
	}
	if allEqualLhs {
		f.RemoveStmt(phi)
		return
	}

	firstName, firstIsParam := ops[0].name, ops[0].isParam
	allSameBase := true
	for _, o := range ops[1:] {
		if o.name != firstName {
			allSameBase = false
			break
		}
	}
	if allSameBase {
		assign := stmt.NewAssign(d.makeLocation(lhsName, lhsIsParam), d.makeLocation(firstName, firstIsParam), nil)
		f.ReplaceStmt(phi, assign)
		return
	}

	tempName := d.newTempName()
	for _, o := range ops {
		copyStmt := stmt.NewAssign(expr.Local(tempName), d.makeLocation(o.name, o.isParam), nil)
		if o.defStmt == nil {
			d.cfg.Entry.InsertAfter(nil, copyStmt)
			continue
		}
		defFrag := d.stmtFrag[o.defStmt.ID()]
		if defFrag == nil {
			defFrag = f
		}
		defFrag.InsertAfter(o.defStmt, copyStmt)
	}
	assign := stmt.NewAssign(d.makeLocation(lhsName, lhsIsParam), expr.Local(tempName), nil)
	f.ReplaceStmt(phi, assign)
}

// populateSymbolMap fills proc.Procedure.SymbolMap from every naming
// table destruction built, preferring the more specific (subscripted)
// key where one exists over the bare base-location fallback.
func (d *destroyer) populateSymbolMap() {
	for k, v := range d.baseNames {
		d.proc.SymbolMap[k] = v
	}
	for k, v := range d.paramNames {
		d.proc.SymbolMap[k] = v
	}
	for k, v := range d.named {
		d.proc.SymbolMap[k] = v
	}
}
