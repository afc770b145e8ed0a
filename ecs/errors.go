package ecs

import (
	"fmt"
	"reflect"
)

var (
	_ error = EntityNotFoundError{}
	_ error = AlreadyDespawnedError{}
	_ error = ConflictingAccessError{}
	_ error = UnregisteredError{}
	_ error = BorrowConflictError{}
)

// EntityNotFoundError reports an operation on an entity whose generation no
// longer matches the live slot, or whose index was never allocated.
type EntityNotFoundError struct {
	Entity Entity
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %v", e.Entity)
}

// AlreadyDespawnedError reports a double-despawn of the same handle. It is
// only distinguishable from EntityNotFoundError until the slot is reused.
type AlreadyDespawnedError struct {
	Entity Entity
}

func (e AlreadyDespawnedError) Error() string {
	return fmt.Sprintf("entity already despawned: %v", e.Entity)
}

// ConflictingAccessError reports a query declaring self-contradictory access
// to one component type.
type ConflictingAccessError struct {
	Type reflect.Type
}

func (e ConflictingAccessError) Error() string {
	return fmt.Sprintf("conflicting access to component %v", e.Type)
}

// UnregisteredError reports a reference to a component type or id never
// registered with the component registry.
type UnregisteredError struct {
	Type reflect.Type
	ID   ComponentID
}

func (e UnregisteredError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("component type not registered: %v", e.Type)
	}
	return fmt.Sprintf("component id not registered: %d", e.ID)
}

// BorrowConflictError reports that a borrow guard could not be acquired, or
// that a structural change targeted an archetype with outstanding guards.
type BorrowConflictError struct {
	// Type is the component whose column is under conflict, nil when the
	// whole archetype is pinned by an active query.
	Type reflect.Type
}

func (e BorrowConflictError) Error() string {
	if e.Type == nil {
		return "archetype has outstanding borrow guards"
	}
	return fmt.Sprintf("conflicting borrow on component %v", e.Type)
}
