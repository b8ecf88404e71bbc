package wrentest

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/wrenit/wren"
)

type value = any

type list struct {
	items []value
}

type mapObj struct {
	vals map[value]value
	keys []value
}

func newMap() *mapObj {
	return &mapObj{vals: make(map[value]value)}
}

func (m *mapObj) set(k, v value) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m *mapObj) remove(k value) value {
	v, ok := m.vals[k]
	if !ok {
		return nil
	}
	delete(m.vals, k)
	m.keys = slices.DeleteFunc(m.keys, func(x value) bool { return x == k })
	return v
}

type class struct {
	parent  *class
	static  map[string]uint64
	methods map[string]uint64
	name    string
	module  string
	ud      uint64
	foreign bool
	builtin bool
}

func newClass(name, module string) *class {
	return &class{
		name:    name,
		module:  module,
		static:  make(map[string]uint64),
		methods: make(map[string]uint64),
	}
}

func (c *class) lookup(signature string) (uint64, bool) {
	for k := c; k != nil; k = k.parent {
		if ud, ok := k.methods[signature]; ok {
			return ud, true
		}
	}
	return 0, false
}

// instance is a foreign class instance backed by a block address.
type instance struct {
	class *class
	ptr   wren.Ptr
}

// object is an instance of a script class.
type object struct {
	class *class
}

type callSig struct {
	signature string
	arity     int
}

type module struct {
	vars map[string]value
	name string
}

var builtinClasses = func() map[string]*class {
	out := make(map[string]*class)
	for _, name := range []string{"Object", "System", "Num", "String", "Bool", "Null", "List", "Map", "Fn"} {
		c := newClass(name, "")
		c.builtin = true
		out[name] = c
	}
	return out
}()

type runtimeError struct {
	msg    string
	module string
	line   int
}

func (e *runtimeError) Error() string {
	return e.msg
}

func rterr(line int, format string, args ...any) error {
	return &runtimeError{msg: fmt.Sprintf(format, args...), line: line}
}

// machine is one interpreter instance.
type machine struct {
	host      wren.Host
	modules   map[string]*module
	handles   map[wren.Ptr]value
	instances map[wren.Ptr]*instance
	abort     value
	slots     []value
	saved     [][]value
	free      []wren.Ptr
	ud        uint64

	nextHandle wren.Ptr
	nextBlock  wren.Ptr
	depth      int
	pendingGC  bool
	aborted    bool
}

const (
	firstBlock  wren.Ptr = 0x1000
	blockStride wren.Ptr = 16
	firstHandle wren.Ptr = 0x100000
)

func newMachine(host wren.Host, ud uint64) *machine {
	return &machine{
		host:       host,
		ud:         ud,
		modules:    make(map[string]*module),
		handles:    make(map[wren.Ptr]value),
		instances:  make(map[wren.Ptr]*instance),
		nextBlock:  firstBlock,
		nextHandle: firstHandle,
	}
}

func (m *machine) enter() {
	if m.depth == 0 {
		m.aborted = false
		m.abort = nil
	}
	m.depth++
}

func (m *machine) leave() {
	m.depth--
	if m.depth == 0 && m.pendingGC {
		m.pendingGC = false
		m.collect()
	}
}

func (m *machine) module(name string) *module {
	mod, ok := m.modules[name]
	if !ok {
		mod = &module{name: name, vars: make(map[string]value)}
		m.modules[name] = mod
	}
	return mod
}

func (m *machine) slot(i int) value {
	if i < 0 || i >= len(m.slots) {
		return nil
	}
	return m.slots[i]
}

func (m *machine) setSlot(i int, v value) {
	if i < 0 {
		return
	}
	if i >= len(m.slots) {
		m.ensure(i + 1)
	}
	m.slots[i] = v
}

func (m *machine) ensure(n int) {
	for len(m.slots) < n {
		m.slots = append(m.slots, nil)
	}
}

func (m *machine) interpret(name, src string) wren.InterpretResult {
	m.enter()
	defer m.leave()

	stmts, err := parse(src)
	if err == nil {
		err = m.check(m.module(name), stmts)
	}
	if err != nil {
		m.compileError(name, err)
		return wren.ResultCompileError
	}
	if err := m.exec(m.module(name), stmts); err != nil {
		m.report(err)
		return wren.ResultRuntimeError
	}
	return wren.ResultSuccess
}

func (m *machine) compileError(module string, err error) {
	line := 0
	var pe *parseError
	msg := err.Error()
	if errors.As(err, &pe) {
		line, msg = pe.line, pe.msg
	}
	m.host.Error(m.ud, wren.ErrorCompile, module, line, msg)
}

func (m *machine) report(err error) {
	var re *runtimeError
	if !errors.As(err, &re) {
		re = &runtimeError{msg: err.Error()}
	}
	m.host.Error(m.ud, wren.ErrorRuntime, "", -1, re.msg)
	m.host.Error(m.ud, wren.ErrorStackTrace, re.module, re.line, "(script)")
}

// check rejects references to module variables that are never defined and
// redefinitions of existing ones.
func (m *machine) check(mod *module, stmts []stmt) error {
	defined := make(map[string]bool, len(mod.vars))
	for name := range mod.vars {
		defined[name] = true
	}
	declare := func(name string, line int) error {
		if defined[name] {
			return &parseError{"Module variable is already defined.", line}
		}
		defined[name] = true
		return nil
	}
	for _, s := range stmts {
		var err error
		switch s := s.(type) {
		case *varStmt:
			err = declare(s.name, s.line)
		case *classStmt:
			err = declare(s.name, s.line)
		case *importStmt:
			for _, n := range s.names {
				if err = declare(n.alias, s.line); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}

	known := func(name string) bool {
		_, builtin := builtinClasses[name]
		return defined[name] || builtin
	}
	var walk func(e expr) error
	walk = func(e expr) error {
		switch e := e.(type) {
		case *varRef:
			if !known(e.name) {
				return &parseError{fmt.Sprintf("Variable '%s' is used but not defined.", e.name), e.line}
			}
		case *callExpr:
			if err := walk(e.recv); err != nil {
				return err
			}
			for _, a := range e.args {
				if err := walk(a); err != nil {
					return err
				}
			}
		case *listExpr:
			for _, item := range e.items {
				if err := walk(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, s := range stmts {
		var err error
		switch s := s.(type) {
		case *varStmt:
			err = walk(s.value)
		case *exprStmt:
			err = walk(s.value)
		case *assignStmt:
			if !known(s.name) {
				return &parseError{fmt.Sprintf("Variable '%s' is used but not defined.", s.name), s.line}
			}
			err = walk(s.value)
		case *classStmt:
			if s.parent != "" && !known(s.parent) {
				return &parseError{fmt.Sprintf("Variable '%s' is used but not defined.", s.parent), s.line}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *machine) exec(mod *module, stmts []stmt) error {
	for _, s := range stmts {
		if err := m.execOne(mod, s); err != nil {
			var re *runtimeError
			if errors.As(err, &re) && re.module == "" {
				re.module = mod.name
			}
			return err
		}
	}
	return nil
}

func (m *machine) execOne(mod *module, s stmt) error {
	switch s := s.(type) {
	case *importStmt:
		return m.importModule(mod, s)
	case *varStmt:
		v, err := m.eval(mod, s.value)
		if err != nil {
			return err
		}
		mod.vars[s.name] = v
	case *assignStmt:
		v, err := m.eval(mod, s.value)
		if err != nil {
			return err
		}
		mod.vars[s.name] = v
	case *classStmt:
		return m.defineClass(mod, s)
	case *exprStmt:
		_, err := m.eval(mod, s.value)
		return err
	}
	return nil
}

func (m *machine) importModule(mod *module, s *importStmt) error {
	name, ok := m.host.ResolveModule(m.ud, mod.name, s.module)
	if !ok {
		return rterr(s.line, "Could not resolve module '%s' imported from '%s'.", s.module, mod.name)
	}
	target, loaded := m.modules[name]
	if !loaded {
		src, ok := m.host.LoadModule(m.ud, name)
		if !ok {
			return rterr(s.line, "Could not load module '%s'.", name)
		}
		stmts, err := parse(src)
		target = m.module(name)
		if err == nil {
			err = m.check(target, stmts)
		}
		if err != nil {
			delete(m.modules, name)
			m.compileError(name, err)
			return rterr(s.line, "Could not compile module '%s'.", name)
		}
		if err := m.exec(target, stmts); err != nil {
			return err
		}
	}
	for _, n := range s.names {
		v, ok := target.vars[n.name]
		if !ok {
			return rterr(s.line, "Could not find a variable named '%s' in module '%s'.", n.name, name)
		}
		mod.vars[n.alias] = v
	}
	return nil
}

func (m *machine) defineClass(mod *module, s *classStmt) error {
	c := newClass(s.name, mod.name)
	c.foreign = s.foreign
	if s.parent != "" {
		parent, ok := m.lookup(mod, s.parent).(*class)
		if !ok || (parent.builtin && parent.name != "Object") {
			return rterr(s.line, "Class '%s' cannot inherit from %s.", s.name, s.parent)
		}
		if !parent.builtin {
			c.parent = parent
		}
	}
	if s.foreign {
		c.ud = m.host.BindForeignClass(m.ud, mod.name, s.name)
	}
	for _, mem := range s.members {
		ud := m.host.BindForeignMethod(m.ud, mod.name, s.name, mem.static, mem.signature)
		if ud == 0 {
			return rterr(mem.line, "Could not find foreign method '%s' for class %s in module '%s'.",
				mem.signature, s.name, mod.name)
		}
		if mem.static {
			c.static[mem.signature] = ud
		} else {
			c.methods[mem.signature] = ud
		}
	}
	mod.vars[s.name] = c
	return nil
}

func (m *machine) lookup(mod *module, name string) value {
	if v, ok := mod.vars[name]; ok {
		return v
	}
	if c, ok := builtinClasses[name]; ok {
		return c
	}
	return nil
}

func (m *machine) eval(mod *module, e expr) (value, error) {
	switch e := e.(type) {
	case *literal:
		return e.v, nil
	case *varRef:
		return m.lookup(mod, e.name), nil
	case *listExpr:
		l := &list{items: make([]value, 0, len(e.items))}
		for _, item := range e.items {
			v, err := m.eval(mod, item)
			if err != nil {
				return nil, err
			}
			l.items = append(l.items, v)
		}
		return l, nil
	case *callExpr:
		recv, err := m.eval(mod, e.recv)
		if err != nil {
			return nil, err
		}
		args := make([]value, 0, len(e.args))
		for _, a := range e.args {
			v, err := m.eval(mod, a)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return m.invoke(recv, e.signature, args, e.line)
	}
	return nil, rterr(0, "unsupported expression %T", e)
}

func (m *machine) invoke(recv value, sig string, args []value, line int) (value, error) {
	switch r := recv.(type) {
	case *class:
		return m.invokeStatic(r, sig, args, line)
	case *instance:
		if ud, ok := r.class.lookup(sig); ok {
			return m.callForeign(ud, append([]value{r}, args...), line)
		}
	case *object:
		if ud, ok := r.class.lookup(sig); ok {
			return m.callForeign(ud, append([]value{r}, args...), line)
		}
	}
	return m.builtin(recv, sig, args, line)
}

func (m *machine) invokeStatic(c *class, sig string, args []value, line int) (value, error) {
	if c.builtin && c.name == "System" {
		if v, ok, err := m.system(sig, args, line); ok {
			return v, err
		}
	}
	if ud, ok := c.static[sig]; ok {
		return m.callForeign(ud, append([]value{c}, args...), line)
	}
	if ud, ok := c.methods["init "+sig]; ok {
		return m.construct(c, ud, args, line)
	}
	if sig == "name" {
		return c.name, nil
	}
	return m.builtin(c, sig, args, line)
}

func (m *machine) construct(c *class, init uint64, args []value, line int) (value, error) {
	var self value
	if c.foreign {
		if c.ud == 0 {
			return nil, rterr(line, "Foreign class '%s' has no allocator.", c.name)
		}
		v, err := m.callHost(func() { m.host.Allocate(m.ud, c.ud) }, append([]value{c}, args...), line)
		if err != nil {
			return nil, err
		}
		inst, ok := v.(*instance)
		if !ok {
			return nil, rterr(line, "Allocator for '%s' did not create a foreign instance.", c.name)
		}
		self = inst
	} else {
		self = &object{class: c}
	}
	if _, err := m.callForeign(init, append([]value{self}, args...), line); err != nil {
		return nil, err
	}
	return self, nil
}

func (m *machine) callForeign(ud uint64, args []value, line int) (value, error) {
	return m.callHost(func() { m.host.CallForeign(m.ud, ud) }, args, line)
}

// callHost runs fn with args as the slot array and returns slot 0. The
// caller's slots are restored afterwards.
func (m *machine) callHost(fn func(), args []value, line int) (value, error) {
	m.saved = append(m.saved, m.slots)
	m.slots = slices.Clone(args)
	fn()

	var result value
	if len(m.slots) > 0 {
		result = m.slots[0]
	}
	m.slots = m.saved[len(m.saved)-1]
	m.saved = m.saved[:len(m.saved)-1]

	if m.aborted {
		msg := m.abort
		m.aborted, m.abort = false, nil
		return nil, rterr(line, "%s", plain(msg))
	}
	return result, nil
}

func (m *machine) system(sig string, args []value, line int) (value, bool, error) {
	switch sig {
	case "print()":
		m.host.Write(m.ud, "\n")
		return nil, true, nil
	case "print(_)", "write(_)":
		s, err := m.toString(args[0], line)
		if err != nil {
			return nil, true, err
		}
		m.host.Write(m.ud, s)
		if sig == "print(_)" {
			m.host.Write(m.ud, "\n")
		}
		return args[0], true, nil
	case "gc()":
		m.collect()
		return nil, true, nil
	}
	return nil, false, nil
}

func (m *machine) toString(v value, line int) (string, error) {
	switch x := v.(type) {
	case *list:
		parts := make([]string, len(x.items))
		for i, item := range x.items {
			s, err := m.toString(item, line)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *mapObj:
		parts := make([]string, len(x.keys))
		for i, k := range x.keys {
			ks, err := m.toString(k, line)
			if err != nil {
				return "", err
			}
			vs, err := m.toString(x.vals[k], line)
			if err != nil {
				return "", err
			}
			parts[i] = ks + ": " + vs
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *instance, *object:
		r, err := m.invoke(v, "toString", nil, line)
		if err != nil {
			return "", err
		}
		s, ok := r.(string)
		if !ok {
			return "", rterr(line, "toString must return a string.")
		}
		return s, nil
	}
	return plain(v), nil
}

// plain renders a value without dispatching to foreign methods.
func plain(v value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNum(x)
	case string:
		return x
	case *class:
		return x.name
	case *instance:
		return "instance of " + x.class.name
	case *object:
		return "instance of " + x.class.name
	case *list:
		return "instance of List"
	case *mapObj:
		return "instance of Map"
	case *callSig:
		return "instance of Fn"
	}
	return fmt.Sprint(v)
}

func formatNum(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "infinity"
	case math.IsInf(f, -1):
		return "-infinity"
	}
	return strconv.FormatFloat(f, 'g', 14, 64)
}

func typeName(v value) string {
	switch x := v.(type) {
	case nil:
		return "Null"
	case bool:
		return "Bool"
	case float64:
		return "Num"
	case string:
		return "String"
	case *list:
		return "List"
	case *mapObj:
		return "Map"
	case *class:
		return x.name + " metaclass"
	case *instance:
		return x.class.name
	case *object:
		return x.class.name
	}
	return "Fn"
}

func isA(v value, c *class) bool {
	if c.builtin {
		return c.name == "Object" || c.name == typeName(v)
	}
	var k *class
	switch x := v.(type) {
	case *instance:
		k = x.class
	case *object:
		k = x.class
	}
	for ; k != nil; k = k.parent {
		if k == c {
			return true
		}
	}
	return false
}

func truthy(v value) bool {
	return v != nil && v != false
}

func (m *machine) builtin(recv value, sig string, args []value, line int) (value, error) {
	switch sig {
	case "==(_)":
		return recv == args[0], nil
	case "!=(_)":
		return recv != args[0], nil
	case "!":
		return !truthy(recv), nil
	case "toString":
		return m.toString(recv, line)
	case "is(_)":
		c, ok := args[0].(*class)
		if !ok {
			return nil, rterr(line, "Right operand must be a class.")
		}
		return isA(recv, c), nil
	}

	var (
		v   value
		ok  bool
		err error
	)
	switch x := recv.(type) {
	case float64:
		v, ok, err = numOp(x, sig, args, line)
	case string:
		v, ok, err = stringOp(x, sig, args, line)
	case *list:
		v, ok, err = listOp(x, sig, args, line)
	case *mapObj:
		v, ok, err = mapOp(x, sig, args, line)
	}
	if err != nil || ok {
		return v, err
	}
	return nil, rterr(line, "%s does not implement '%s'.", typeName(recv), sig)
}

func numOp(x float64, sig string, args []value, line int) (value, bool, error) {
	switch sig {
	case "-":
		return -x, true, nil
	case "~":
		return float64(^uint32(x)), true, nil
	case "abs":
		return math.Abs(x), true, nil
	case "floor":
		return math.Floor(x), true, nil
	case "ceil":
		return math.Ceil(x), true, nil
	case "round":
		return math.Round(x), true, nil
	case "sqrt":
		return math.Sqrt(x), true, nil
	case "truncate":
		return math.Trunc(x), true, nil
	case "isInteger":
		return x == math.Trunc(x) && !math.IsInf(x, 0), true, nil
	}
	if len(args) != 1 {
		return nil, false, nil
	}
	y, isNum := args[0].(float64)
	switch sig {
	case "+(_)", "-(_)", "*(_)", "/(_)", "%(_)", "<(_)", "<=(_)", ">(_)", ">=(_)",
		"&(_)", "|(_)", "^(_)", "<<(_)", ">>(_)":
		if !isNum {
			return nil, true, rterr(line, "Right operand must be a number.")
		}
	default:
		return nil, false, nil
	}
	switch sig {
	case "+(_)":
		return x + y, true, nil
	case "-(_)":
		return x - y, true, nil
	case "*(_)":
		return x * y, true, nil
	case "/(_)":
		return x / y, true, nil
	case "%(_)":
		return math.Mod(x, y), true, nil
	case "<(_)":
		return x < y, true, nil
	case "<=(_)":
		return x <= y, true, nil
	case ">(_)":
		return x > y, true, nil
	case ">=(_)":
		return x >= y, true, nil
	case "&(_)":
		return float64(uint32(x) & uint32(y)), true, nil
	case "|(_)":
		return float64(uint32(x) | uint32(y)), true, nil
	case "^(_)":
		return float64(uint32(x) ^ uint32(y)), true, nil
	case "<<(_)":
		return float64(uint32(x) << uint32(y)), true, nil
	default:
		return float64(uint32(x) >> uint32(y)), true, nil
	}
}

func stringOp(x string, sig string, args []value, line int) (value, bool, error) {
	switch sig {
	case "count":
		return float64(len([]rune(x))), true, nil
	case "+(_)":
		y, ok := args[0].(string)
		if !ok {
			return nil, true, rterr(line, "Right operand must be a string.")
		}
		return x + y, true, nil
	case "[_]":
		runes := []rune(x)
		i, err := index(args[0], len(runes), line)
		if err != nil {
			return nil, true, err
		}
		return string(runes[i]), true, nil
	case "contains(_)", "startsWith(_)", "endsWith(_)":
		y, ok := args[0].(string)
		if !ok {
			return nil, true, rterr(line, "Argument must be a string.")
		}
		switch sig {
		case "contains(_)":
			return strings.Contains(x, y), true, nil
		case "startsWith(_)":
			return strings.HasPrefix(x, y), true, nil
		}
		return strings.HasSuffix(x, y), true, nil
	}
	return nil, false, nil
}

func listOp(l *list, sig string, args []value, line int) (value, bool, error) {
	switch sig {
	case "count":
		return float64(len(l.items)), true, nil
	case "add(_)":
		l.items = append(l.items, args[0])
		return args[0], true, nil
	case "clear()":
		l.items = nil
		return nil, true, nil
	case "contains(_)":
		return slices.Contains(l.items, args[0]), true, nil
	case "[_]":
		i, err := index(args[0], len(l.items), line)
		if err != nil {
			return nil, true, err
		}
		return l.items[i], true, nil
	case "[_]=(_)":
		i, err := index(args[0], len(l.items), line)
		if err != nil {
			return nil, true, err
		}
		l.items[i] = args[1]
		return args[1], true, nil
	case "removeAt(_)":
		i, err := index(args[0], len(l.items), line)
		if err != nil {
			return nil, true, err
		}
		v := l.items[i]
		l.items = slices.Delete(l.items, i, i+1)
		return v, true, nil
	case "insert(_,_)":
		i, err := index(args[0], len(l.items)+1, line)
		if err != nil {
			return nil, true, err
		}
		l.items = slices.Insert(l.items, i, args[1])
		return args[1], true, nil
	}
	return nil, false, nil
}

func mapOp(mp *mapObj, sig string, args []value, line int) (value, bool, error) {
	switch sig {
	case "count":
		return float64(len(mp.keys)), true, nil
	case "[_]":
		return mp.vals[args[0]], true, nil
	case "[_]=(_)":
		if !validKey(args[0]) {
			return nil, true, rterr(line, "Key must be a value type.")
		}
		mp.set(args[0], args[1])
		return args[1], true, nil
	case "containsKey(_)":
		_, ok := mp.vals[args[0]]
		return ok, true, nil
	case "remove(_)":
		return mp.remove(args[0]), true, nil
	case "keys":
		return &list{items: slices.Clone(mp.keys)}, true, nil
	case "values":
		l := &list{items: make([]value, 0, len(mp.keys))}
		for _, k := range mp.keys {
			l.items = append(l.items, mp.vals[k])
		}
		return l, true, nil
	}
	return nil, false, nil
}

func validKey(v value) bool {
	switch v.(type) {
	case nil, bool, float64, string, *class:
		return true
	}
	return false
}

func index(v value, n, line int) (int, error) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, rterr(line, "Subscript must be an integer.")
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, rterr(line, "Subscript out of bounds.")
	}
	return i, nil
}

// call invokes a call handle on the receiver in slot 0 with arguments from
// the following slots, leaving the result in slot 0.
func (m *machine) call(h wren.Ptr) wren.InterpretResult {
	m.enter()
	defer m.leave()

	sig, ok := m.handles[h].(*callSig)
	if !ok {
		m.report(rterr(-1, "Handle is not a call handle."))
		return wren.ResultRuntimeError
	}
	if len(m.slots) < sig.arity+1 {
		m.report(rterr(-1, "Not enough slots for '%s'.", sig.signature))
		return wren.ResultRuntimeError
	}
	recv := m.slots[0]
	args := slices.Clone(m.slots[1 : sig.arity+1])
	v, err := m.invoke(recv, sig.signature, args, -1)
	m.slots = m.slots[:1]
	if err != nil {
		m.slots[0] = nil
		m.report(err)
		return wren.ResultRuntimeError
	}
	m.slots[0] = v
	return wren.ResultSuccess
}

// collect finalizes foreign instances unreachable from module variables,
// slots and handles. A collection requested while script code runs is
// deferred until the outermost Interpret or Call returns.
func (m *machine) collect() {
	if m.depth > 0 {
		m.pendingGC = true
		return
	}
	marked := make(map[value]bool)
	var mark func(v value)
	mark = func(v value) {
		switch x := v.(type) {
		case *list:
			if marked[x] {
				return
			}
			marked[x] = true
			for _, item := range x.items {
				mark(item)
			}
		case *mapObj:
			if marked[x] {
				return
			}
			marked[x] = true
			for _, k := range x.keys {
				mark(k)
				mark(x.vals[k])
			}
		case *instance, *object:
			marked[x] = true
		}
	}
	for _, mod := range m.modules {
		for _, v := range mod.vars {
			mark(v)
		}
	}
	for _, v := range m.slots {
		mark(v)
	}
	for _, frame := range m.saved {
		for _, v := range frame {
			mark(v)
		}
	}
	for _, v := range m.handles {
		mark(v)
	}

	for _, ptr := range m.blockAddrs() {
		if inst := m.instances[ptr]; !marked[inst] {
			m.finalize(inst)
		}
	}
}

func (m *machine) blockAddrs() []wren.Ptr {
	addrs := make([]wren.Ptr, 0, len(m.instances))
	for p := range m.instances {
		addrs = append(addrs, p)
	}
	slices.Sort(addrs)
	return addrs
}

func (m *machine) finalize(inst *instance) {
	delete(m.instances, inst.ptr)
	m.host.Finalize(m.ud, inst.ptr, inst.class.ud)
	m.free = append(m.free, inst.ptr)
}

// allocBlock hands out block addresses, reusing freed ones most recent first.
func (m *machine) allocBlock() wren.Ptr {
	if n := len(m.free); n > 0 {
		p := m.free[n-1]
		m.free = m.free[:n-1]
		return p
	}
	p := m.nextBlock
	m.nextBlock += blockStride
	return p
}

func (m *machine) newHandle(v value) wren.Ptr {
	p := m.nextHandle
	m.nextHandle += 8
	m.handles[p] = v
	return p
}

func (m *machine) freeAll() {
	for _, ptr := range m.blockAddrs() {
		m.finalize(m.instances[ptr])
	}
	clear(m.handles)
	clear(m.modules)
	m.slots = nil
}
