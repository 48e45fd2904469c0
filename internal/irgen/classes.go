package irgen

import (
	"github.com/vortex-obf/vortexc/internal/ast"
	"github.com/vortex-obf/vortexc/internal/ir"
	"github.com/vortex-obf/vortexc/internal/memory"
)

// genClassDecl lowers a class declaration into its constructor/method
// FUNC_ENTRYs plus a descriptor value bound to the class's own name, the
// same way a function declaration binds a callable name into scope
// (spec.md §4.3.3).
func (g *Generator) genClassDecl(n *ast.Node) edge {
	cls := g.lowerClass(n, n.Name)
	slot := g.bind(n.Name, false)
	assign := g.mod.New(ir.ASSIGN)
	assign.To = slot
	assign.From = cls.value
	g.link(cls.end, assign.ID)
	return edge{cls.start, assign.ID}
}

// genClassExpr lowers a class used as a value.
func (g *Generator) genClassExpr(n *ast.Node) exprResult {
	name := n.Name
	if name == "" {
		name = g.synthName("_class")
	}
	cls := g.lowerClass(n, name)
	return exprResult{cls.start, cls.end, cls.value}
}

// classResult is the {start,end,value} triple class lowering returns: value
// is the memory slot holding the class descriptor object.
type classResult struct {
	start, end, value int
}

// lowerClass builds every member's FUNC_ENTRY, the prototype object methods
// hang off, and a descriptor object tying them together (spec.md §4.3.3
// "constructor synthesis/field-initializer injection, methods via
// FUNC_ENTRY, static members, prototype-chain wiring").
func (g *Generator) lowerClass(n *ast.Node, name string) classResult {
	prevSuper := g.curSuperClass
	superName := ""
	if n.SuperClass != nil && n.SuperClass.Kind == ast.Ident {
		superName = n.SuperClass.Name
	}
	g.curSuperClass = superName
	defer func() { g.curSuperClass = prevSuper }()

	var ctorMember *ast.Node
	var instanceFields, staticFields, instanceMethods, staticMethods []*ast.Node
	for _, m := range n.Members {
		switch {
		case m.Kind == ast.MethodDef && m.Kind2 == "constructor":
			ctorMember = m
		case m.Kind == ast.FieldDef && m.Static:
			staticFields = append(staticFields, m)
		case m.Kind == ast.FieldDef:
			instanceFields = append(instanceFields, m)
		case m.Kind == ast.MethodDef && m.Static:
			staticMethods = append(staticMethods, m)
		case m.Kind == ast.MethodDef:
			instanceMethods = append(instanceMethods, m)
		}
	}

	ctorEntry := g.mod.New(ir.FUNC_ENTRY)
	ctorEntry.Name = name
	g.mod.FuncTable[name] = ctorEntry.ID
	g.mod.ClassTable[name] = ctorEntry.ID

	ctorParams := []*ast.Node{}
	ctorBody := &ast.Node{Kind: ast.BlockStmt}
	autoSuper := false
	if ctorMember != nil {
		ctorParams = ctorMember.Params
		ctorBody = ctorMember.Body
	} else if superName != "" {
		autoSuper = true
	}
	g.lowerConstructor(ctorEntry.ID, name, superName, ctorParams, ctorBody, instanceFields, autoSuper)

	head := g.mod.New(ir.NOOP)
	last := head.ID

	var protoProps []ir.Property
	for _, m := range instanceMethods {
		fnVar, fnLast := g.lowerMethod(name, m, false, last)
		last = fnLast
		protoProps = append(protoProps, propFor(m, fnVar))
	}
	proto := g.mod.New(ir.CREATE_OBJECT)
	proto.Properties = protoProps
	proto.To = g.freshTemp()
	g.link(last, proto.ID)
	last = proto.ID

	descProps := []ir.Property{
		{KeyName: "__ctor__", ValueVar: g.literalString(name, &last)},
		{KeyName: "prototype", ValueVar: proto.To},
	}
	for _, m := range staticMethods {
		fnVar, fnLast := g.lowerMethod(name, m, true, last)
		last = fnLast
		descProps = append(descProps, propFor(m, fnVar))
	}
	for _, f := range staticFields {
		var valVar int
		if f.Right != nil {
			r := g.genExpr(f.Right)
			g.link(last, r.start)
			last = r.end
			valVar = r.resultVar
		} else {
			undef := g.mod.New(ir.ASSIGN_LITERAL)
			undef.To = g.freshTemp()
			g.link(last, undef.ID)
			last = undef.ID
			valVar = undef.To
		}
		descProps = append(descProps, ir.Property{KeyName: f.Name, ValueVar: valVar})
	}

	desc := g.mod.New(ir.CREATE_OBJECT)
	desc.Properties = descProps
	desc.To = g.freshTemp()
	g.link(last, desc.ID)

	return classResult{head.ID, desc.ID, desc.To}
}

func propFor(m *ast.Node, fnVar int) ir.Property {
	return ir.Property{KeyName: m.Name, ValueVar: fnVar}
}

func (g *Generator) literalString(s string, last *int) int {
	lit := g.mod.New(ir.ASSIGN_LITERAL)
	lit.To = g.freshTemp()
	lit.Value = ir.StringRef{Text: s}
	g.link(*last, lit.ID)
	*last = lit.ID
	return lit.To
}

// lowerConstructor lowers the constructor body, injecting an implicit
// super(...) forwarding call when the class has no explicit constructor
// (spec.md §4.3.3). Instance field initializers run right after that
// implicit call; with an explicit constructor they run before the whole
// body, so before any super(...) call the body makes.
func (g *Generator) lowerConstructor(entryID int, name, superName string, params []*ast.Node, body *ast.Node, fields []*ast.Node, autoSuper bool) {
	captured := freeVarsOf(params, body, name)
	g.captures[name] = captured

	fc := &funcCtx{name: name, ownNames: make(map[string]bool), capturedSet: make(map[string]bool)}
	g.funcs = append(g.funcs, fc)
	g.pushScope()

	paramSlots, preludeStart, preludeEnd := g.bindParams(params)
	var capturedSlots []int
	for _, capName := range captured {
		capturedSlots = append(capturedSlots, g.bind(capName, false))
	}
	fe := g.mod.Get(entryID)
	fe.Params = append(paramSlots, capturedSlots...)
	fe.Name = name

	g.link(entryID, preludeStart)
	last := preludeEnd

	if autoSuper {
		superCall := g.mod.New(ir.CALL)
		superCall.Callee = superName
		superCall.Args = paramSlots
		superCall.ThisObject = memory.Slot(memory.THIS)
		g.link(last, superCall.ID)
		post := g.mod.New(ir.POST_CALL)
		g.link(superCall.ID, post.ID)
		last = post.ID
	}

	thisSlot := memory.Slot(memory.THIS)
	for _, f := range fields {
		last = g.lowerFieldInit(f, thisSlot, last)
	}

	if body.Kind == ast.BlockStmt {
		g.declareFuncEntries(body.Body2)
	}
	bodyEdge := g.genStmt(body)
	g.link(last, bodyEdge.start)

	tail := g.mod.Get(bodyEdge.end)
	if !tail.Op.Terminal() {
		ret := g.mod.New(ir.RETURN)
		ret.ValueVar = thisSlot
		g.link(bodyEdge.end, ret.ID)
	}

	g.popScope()
	g.funcs = g.funcs[:len(g.funcs)-1]
}

func (g *Generator) lowerFieldInit(f *ast.Node, thisSlot, last int) int {
	var valueVar int
	if f.Right != nil {
		r := g.genExpr(f.Right)
		g.link(last, r.start)
		last = r.end
		valueVar = r.resultVar
	} else {
		undef := g.mod.New(ir.ASSIGN_LITERAL)
		undef.To = g.freshTemp()
		g.link(last, undef.ID)
		last = undef.ID
		valueVar = undef.To
	}
	if f.IsPrivate {
		return g.privateSet(f.Name, thisSlot, valueVar, last)
	}
	s := g.mod.New(ir.MEMBER_ASSIGN)
	s.Object = thisSlot
	s.Property = f.Name
	s.From = valueVar
	g.link(last, s.ID)
	return s.ID
}

// lowerMethod lowers a single method body into its own FUNC_ENTRY, returning
// a closure-descriptor value referencing it (so it can be installed as a
// prototype or static property) plus the updated chain position.
func (g *Generator) lowerMethod(className string, m *ast.Node, static bool, last int) (fnVar, newLast int) {
	prefix := "#"
	if static {
		prefix = "#static#"
	}
	name := className + prefix + m.Name

	entry := g.mod.New(ir.FUNC_ENTRY)
	entry.Name = name
	entry.IsAsync = m.IsAsync
	entry.IsGenerator = m.IsGenerator
	g.mod.FuncTable[name] = entry.ID

	g.lowerFunctionBody(entry.ID, name, m.Params, m.Body, m.IsAsync, m.IsGenerator)

	lit := g.mod.New(ir.ASSIGN_LITERAL)
	lit.To = g.freshTemp()
	lit.Value = ir.StringRef{Text: name}
	g.link(last, lit.ID)

	desc := g.mod.New(ir.CREATE_OBJECT)
	desc.Properties = []ir.Property{{KeyName: "__fn__", ValueVar: lit.To}}
	desc.To = g.freshTemp()
	g.link(lit.ID, desc.ID)

	return desc.To, desc.ID
}

// privateMapName derives the global weak-map slot name backing a private
// field (spec.md §4.3.3 "private fields via global weak-map slot"): every
// instance's private value lives at mapObj[instance], keyed by identity.
func privateMapName(fieldName string) string {
	return "#" + fieldName
}

func (g *Generator) privateGet(fieldName string, instance exprResult) exprResult {
	mapRead := g.mod.New(ir.MEMBER_ACCESS_GLOBAL)
	mapRead.GlobalName = privateMapName(fieldName)
	mapRead.To = g.freshTemp()
	g.link(instance.end, mapRead.ID)

	get := g.mod.New(ir.MEMBER_ACCESS_COMPUTED)
	get.Object = mapRead.To
	get.Computed = true
	get.KeyVar = instance.resultVar
	get.To = g.freshTemp()
	g.link(mapRead.ID, get.ID)

	return exprResult{instance.start, get.ID, get.To}
}

func (g *Generator) privateSet(fieldName string, instanceVar, valueVar, last int) int {
	mapRead := g.mod.New(ir.MEMBER_ACCESS_GLOBAL)
	mapRead.GlobalName = privateMapName(fieldName)
	mapRead.To = g.freshTemp()
	g.link(last, mapRead.ID)

	set := g.mod.New(ir.MEMBER_ASSIGN_COMPUTED)
	set.Object = mapRead.To
	set.Computed = true
	set.KeyVar = instanceVar
	set.From = valueVar
	g.link(mapRead.ID, set.ID)

	return set.ID
}

// genSuperPropertyRef reads `super.name` (or `super[expr]`) through the
// superclass's prototype, per spec.md §4.3.3: the RequiredRuntimeNames
// "prototype"/"constructor" convention makes this expressible with plain
// MEMBER_ACCESS states rather than a dedicated opcode.
func (g *Generator) genSuperPropertyRef(n *ast.Node) exprResult {
	ctorRead := g.readName(g.curSuperClass)

	protoRead := g.mod.New(ir.MEMBER_ACCESS)
	protoRead.Object = ctorRead.resultVar
	protoRead.Property = "prototype"
	protoRead.To = g.freshTemp()
	g.link(ctorRead.end, protoRead.ID)

	if n.Computed {
		key := g.genExpr(n.Property2)
		g.link(protoRead.ID, key.start)
		access := g.mod.New(ir.MEMBER_ACCESS_COMPUTED)
		access.Object = protoRead.To
		access.Computed = true
		access.KeyVar = key.resultVar
		access.To = g.freshTemp()
		g.link(key.end, access.ID)
		return exprResult{ctorRead.start, access.ID, access.To}
	}

	access := g.mod.New(ir.MEMBER_ACCESS)
	access.Object = protoRead.To
	access.Property = n.Name
	access.To = g.freshTemp()
	g.link(protoRead.ID, access.ID)
	return exprResult{ctorRead.start, access.ID, access.To}
}

func (g *Generator) genSuperMethodCall(n *ast.Node) exprResult {
	fnRef := g.genSuperPropertyRef(n.Callee)
	last := fnRef.end
	args := g.genArgs(n.Args, &last)

	call := g.mod.New(ir.EXTERNAL_CALL)
	call.CalleeVar = fnRef.resultVar
	call.Args = args
	call.ThisObject = memory.Slot(memory.THIS)
	call.ValueVar = g.freshTemp()
	g.link(last, call.ID)

	return exprResult{fnRef.start, call.ID, call.ValueVar}
}

func (g *Generator) genSuperCtorCall(n *ast.Node) exprResult {
	return g.genKnownCall(n, g.curSuperClass, memory.Slot(memory.THIS))
}
