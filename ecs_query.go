package gekko

import (
	"reflect"
)

// Queries visit archetypes in archetype-id order and entities in ascending
// id order, so two runs over the same world see the same sequence.
//
// To add QueryN: declare the type and MakeQueryN, add identifyComponentsN,
// then copy MapN-1 and extend it.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }

// column returns the typed slice for id in arch. missing is true when the
// archetype lacks the component but it was listed as optional; ok is false
// when the archetype does not match.
func column[T any](arch *archetype, id componentId, opt set[componentId]) (data []T, missing bool, ok bool) {
	if raw, has := arch.componentData[id]; has {
		return raw.([]T), false, true
	}
	if _, optional := opt[id]; optional {
		return nil, true, true
	}
	return nil, false, false
}

func at[T any](data []T, missing bool, r row) *T {
	if missing {
		return nil
	}
	return &data[r]
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponents1[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.sortedArchetypes() {
		comps1, noA, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		for _, entityId := range arch.sortedEntities() {
			r := arch.entities[entityId]
			if !m(entityId, at(comps1, noA, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.sortedArchetypes() {
		comps1, noA, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, noB, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}
		for _, entityId := range arch.sortedEntities() {
			r := arch.entities[entityId]
			if !m(entityId, at(comps1, noA, r), at(comps2, noB, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := identifyComponents3[A, B, C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.sortedArchetypes() {
		comps1, noA, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, noB, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, noC, ok := column[C](arch, id3, opt)
		if !ok {
			continue
		}
		for _, entityId := range arch.sortedEntities() {
			r := arch.entities[entityId]
			if !m(entityId, at(comps1, noA, r), at(comps2, noB, r), at(comps3, noC, r)) {
				return
			}
		}
	}
}

// identifyOptionals accepts zero values or pointers of the optional
// component types.
func identifyOptionals(ecs *Ecs, optionals ...any) set[componentId] {
	res := make(set[componentId], len(optionals))
	for _, o := range optionals {
		res[ecs.getComponentId(componentType(o))] = struct{}{}
	}
	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeOf((*A)(nil)).Elem())
}

func identifyComponents2[A, B any](ecs *Ecs) (componentId, componentId) {
	return identifyComponents1[A](ecs), identifyComponents1[B](ecs)
}

func identifyComponents3[A, B, C any](ecs *Ecs) (componentId, componentId, componentId) {
	return identifyComponents1[A](ecs), identifyComponents1[B](ecs), identifyComponents1[C](ecs)
}
