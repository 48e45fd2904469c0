package irgen

import "github.com/vortex-obf/vortexc/internal/ast"

// freeVarsOf performs a static, IR-generation-independent free-variable
// scan of a function body (spec.md §4.3.2 "closure capture as explicit
// extra FUNC_ENTRY parameters"). Running this ahead of IR lowering, rather
// than threading capture discovery through genExpr/genStmt, means a call
// site can always see a callee's captured-name list regardless of which of
// the two is lowered first — the two-pass FUNC_ENTRY discovery in
// generator.go solves the same forward-reference problem for call targets;
// this solves it for their capture lists.
func freeVarsOf(params []*ast.Node, body *ast.Node, ownName string) []string {
	bound := map[string]bool{}
	if ownName != "" {
		bound[ownName] = true
	}
	collectParamNames(params, bound)

	var order []string
	seen := map[string]bool{}
	record := func(name string, bound map[string]bool) {
		if !bound[name] && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	var walk func(n *ast.Node, bound map[string]bool)
	walk = func(n *ast.Node, bound map[string]bool) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.Ident:
			record(n.Name, bound)
			return
		case ast.VarDecl:
			for _, d := range n.Declarations {
				if d.Right != nil {
					walk(d.Right, bound)
				}
				declareBound(d.Id, bound)
			}
			return
		case ast.FuncDecl, ast.FuncExpr, ast.ArrowFuncExpr:
			inner := cloneBoundSet(bound)
			if n.Name != "" {
				inner[n.Name] = true
			}
			collectParamNames(n.Params, inner)
			walk(n.Body, inner)
			return
		case ast.CatchClause:
			inner := cloneBoundSet(bound)
			if n.Id != nil {
				declareBound(n.Id, inner)
			}
			walk(n.Body, inner)
			return
		case ast.ClassDecl, ast.ClassExpr:
			// Class bodies get their own capture analysis per method when
			// classes.go lowers them; skip here to avoid double-counting.
			return
		}
		forEachChild(n, func(c *ast.Node) { walk(c, bound) })
	}
	walk(body, bound)
	return order
}

func collectParamNames(params []*ast.Node, bound map[string]bool) {
	for _, p := range params {
		declareBound(p, bound)
	}
}

func declareBound(pat *ast.Node, bound map[string]bool) {
	if pat == nil {
		return
	}
	switch pat.Kind {
	case ast.Ident:
		bound[pat.Name] = true
	case ast.ArrayPattern:
		for _, el := range pat.Elements {
			declareBound(el, bound)
		}
	case ast.ObjectPattern:
		for _, p := range pat.Properties {
			declareBound(p.Property2, bound)
		}
	case ast.AssignPattern:
		declareBound(pat.Left, bound)
	case ast.RestElement:
		declareBound(pat.Argument, bound)
	}
}

func cloneBoundSet(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound)+4)
	for k, v := range bound {
		out[k] = v
	}
	return out
}

// forEachChild visits every direct child Node field of n, in the same
// order as strpool.Pool.walk, so the two traversals can't silently drift
// out of sync on which fields carry children.
func forEachChild(n *ast.Node, visit func(*ast.Node)) {
	visit(n.Object)
	visit(n.Property2)
	visit(n.Left)
	visit(n.Right)
	visit(n.Test)
	visit(n.Consequent)
	visit(n.Alternate)
	visit(n.Body)
	visit(n.Init)
	visit(n.Update)
	visit(n.Callee)
	visit(n.Argument)
	visit(n.Id)
	visit(n.SuperClass)
	visit(n.Discriminant)
	visit(n.Label)
	visit(n.Finalizer)
	for _, c := range n.Params {
		visit(c)
	}
	for _, c := range n.Body2 {
		visit(c)
	}
	for _, c := range n.Elements {
		visit(c)
	}
	for _, c := range n.Properties {
		visit(c)
	}
	for _, c := range n.Args {
		visit(c)
	}
	for _, c := range n.Exprs {
		visit(c)
	}
	for _, c := range n.Cases {
		visit(c)
	}
	for _, c := range n.Declarations {
		visit(c)
	}
	for _, c := range n.Members {
		visit(c)
	}
	for _, c := range n.Handlers {
		visit(c)
	}
	for _, c := range n.Sequence {
		visit(c)
	}
}
