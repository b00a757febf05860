package mdk

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Object is one asset's attribute mapping. Every object carries its own id
// under the "id" key. Values are scalars (string, float64, bool, time.Time),
// or []interface{} for list attributes. Source categories do not share a
// fixed schema, so storage stays open rather than forcing a record type per
// category.
type Object map[string]interface{}

// ID returns the object's identifier.
func (o Object) ID() string { return o.Str("id") }

// Str returns the attribute as a string, or "" when absent or not a string.
func (o Object) Str(key string) string {
	s, _ := o[key].(string)
	return s
}

// Bool returns the attribute as a bool, false when absent.
func (o Object) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Float returns the attribute as a float64 along with presence.
func (o Object) Float(key string) (float64, bool) {
	f, ok := o[key].(float64)
	return f, ok
}

// Date returns the attribute as a time.Time along with presence.
func (o Object) Date(key string) (time.Time, bool) {
	t, ok := o[key].(time.Time)
	return t, ok
}

// List returns the attribute as a list, nil when absent.
func (o Object) List(key string) []interface{} {
	l, _ := o[key].([]interface{})
	return l
}

// Strs returns the string elements of a list attribute.
func (o Object) Strs(key string) []string {
	l := o.List(key)
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Set reports whether the attribute is present and truthy: present, and not
// the zero "", false, or nil. Mirrors the merge rules, which treat a falsy
// value as absent for inheritance and clone purposes.
func (o Object) Set(key string) bool { return truthy(o[key]) }

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	default:
		return true
	}
}

// Copy returns a shallow copy of the object.
func (o Object) Copy() Object {
	c := make(Object, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Warning is one diagnostic entry: the subject asset id and a message.
// Warnings never abort an extraction.
type Warning struct {
	Subject string
	Msg     string
}

// AgentRef is one (agent code, designator prefix) entry of an agent map.
type AgentRef struct {
	Code   string
	Prefix string
}

// Graph is the typed object graph shared by every parser and post-processing
// pass. It is exclusively owned by one Loader for the duration of one
// extraction; concurrent extractions need independent Graphs.
type Graph struct {
	objects  map[string]map[string]Object
	attrs    map[string]map[string]struct{}
	warnings []Warning
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		objects: make(map[string]map[string]Object),
		attrs:   make(map[string]map[string]struct{}),
	}
}

// TypeAssets returns the id->Object mapping for the given type. The returned
// map is the live map when the type exists; mutating passes rely on that.
func (g *Graph) TypeAssets(objType string) map[string]Object {
	if objs, ok := g.objects[objType]; ok {
		return objs
	}
	return map[string]Object{}
}

// Types returns the sorted list of object types present in the graph.
func (g *Graph) Types() []string {
	types := make([]string, 0, len(g.objects))
	for t := range g.objects {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// AttrNames returns the sorted set of attribute names ever written for the
// type. Schema introspection only - never used for validation.
func (g *Graph) AttrNames(objType string) []string {
	names := make([]string, 0, len(g.attrs[objType]))
	for n := range g.attrs[objType] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Warnf appends a warning for the given subject.
func (g *Graph) Warnf(subject, format string, args ...interface{}) {
	g.warnings = append(g.warnings, Warning{Subject: subject, Msg: fmt.Sprintf(format, args...)})
}

// Warnings returns the accumulated warnings in append order.
func (g *Graph) Warnings() []Warning { return g.warnings }

type putOpts struct {
	list     bool
	dupOK    bool
	changeOK bool
	noSort   bool
	keyMap   map[string]string
	static   Object
}

// PutOption configures a single Put call.
type PutOption func(*putOpts)

// AsList marks the attribute as a list attribute: values accumulate instead
// of conflicting.
func AsList() PutOption { return func(o *putOpts) { o.list = true } }

// DupOK tolerates duplicate list values silently (the duplicate is still not
// stored twice).
func DupOK() PutOption { return func(o *putOpts) { o.dupOK = true } }

// ChangeOK permits overwriting an existing differing scalar value. Mapping
// workbook rows are the authoritative override source and use this.
func ChangeOK() PutOption { return func(o *putOpts) { o.changeOK = true } }

// NoSort keeps a list attribute in insertion order.
func NoSort() PutOption { return func(o *putOpts) { o.noSort = true } }

// KeyMap renames attribute keys before storage, letting one parser target
// differently spelled source columns while converging on a canonical schema.
func KeyMap(m map[string]string) PutOption { return func(o *putOpts) { o.keyMap = m } }

// Static merges the given attributes as independent scalar writes, each
// subject to the ordinary conflict rule.
func Static(attrs Object) PutOption {
	return func(o *putOpts) {
		if o.static == nil {
			o.static = Object{}
		}
		for k, v := range attrs {
			o.static[k] = v
		}
	}
}

// Put inserts or updates a single attribute of the identified object,
// creating object and type on first occurrence. This is the single choke
// point through which every category parser and post-processing rule mutates
// the graph; its conflict rules are what make out-of-order, redundant input
// convergent.
//
// Scalar attributes follow first-write-wins: a differing rewrite without
// ChangeOK records a warning and keeps the original value; rewriting the
// same value is a silent no-op. List attributes accumulate unique values,
// sorted ascending unless NoSort. An empty objID is a fatal error - the
// engine does not guess identities.
func (g *Graph) Put(objType, objID, key string, value interface{}, opts ...PutOption) error {
	if objID == "" {
		return errors.Errorf("empty id for %s object (key=%q)", objType, key)
	}
	var po putOpts
	for _, opt := range opts {
		opt(&po)
	}

	objs, ok := g.objects[objType]
	if !ok {
		objs = make(map[string]Object)
		g.objects[objType] = objs
	}
	attrs, ok := g.attrs[objType]
	if !ok {
		attrs = make(map[string]struct{})
		g.attrs[objType] = attrs
	}
	obj, ok := objs[objID]
	if !ok {
		obj = Object{"id": objID}
		objs[objID] = obj
	}

	if key != "" {
		key = mapKey(key, po.keyMap)
		if po.list {
			g.putList(objType, objID, obj, key, value, po)
		} else {
			g.putScalar(objType, objID, obj, key, value, po.changeOK)
		}
		attrs[key] = struct{}{}
	}

	// Static attributes merge one key at a time, each independently subject
	// to the scalar conflict rule. Sorted for deterministic warning order.
	skeys := make([]string, 0, len(po.static))
	for k := range po.static {
		skeys = append(skeys, k)
	}
	sort.Strings(skeys)
	for _, sk := range skeys {
		mk := mapKey(sk, po.keyMap)
		g.putScalar(objType, objID, obj, mk, po.static[sk], po.changeOK)
		attrs[mk] = struct{}{}
	}
	return nil
}

func mapKey(key string, m map[string]string) string {
	if m == nil {
		return key
	}
	if mapped, ok := m[key]; ok {
		return mapped
	}
	return key
}

func (g *Graph) putScalar(objType, objID string, obj Object, key string, value interface{}, changeOK bool) {
	old, exists := obj[key]
	switch {
	case !exists || changeOK:
		obj[key] = value
	case reflect.DeepEqual(old, value):
		// idempotent rewrite
	default:
		g.Warnf(objID, "duplicate_attr: %s.%s has duplicate attribute %q def: (old=%v, new=%v)",
			objType, objID, key, old, value)
	}
}

func (g *Graph) putList(objType, objID string, obj Object, key string, value interface{}, po putOpts) {
	cur, exists := obj[key].([]interface{})
	if !exists {
		obj[key] = []interface{}{value}
		return
	}
	for _, v := range cur {
		if reflect.DeepEqual(v, value) {
			if !po.dupOK {
				g.Warnf(objID, "duplicate_attr_list_value: %s.%s has attribute %q with duplicate list value: %v",
					objType, objID, key, value)
			}
			return
		}
	}
	cur = append(cur, value)
	if !po.noSort {
		sort.SliceStable(cur, func(i, j int) bool { return lessValue(cur[i], cur[j]) })
	}
	obj[key] = cur
}

func lessValue(a, b interface{}) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
