package ecs

import "reflect"

// column is a contiguous, resizable, type-erased buffer holding one
// component value per row of an archetype.
type column interface {
	len() int
	// push appends the boxed value (T or *T) as a new row.
	push(v any)
	// set overwrites the value at row.
	set(row int, v any)
	// get returns the value at row boxed as *T.
	get(row int) any
	// pushFrom appends the value at srcRow of src, a column of the same
	// component type. This is the erased move used by structural changes.
	pushFrom(src column, srcRow int)
	// swapRemove moves the last row into row and clears the vacated slot so
	// the removed value is no longer reachable.
	swapRemove(row int)
	// reset drops all rows.
	reset()
}

// typedColumn backs components registered through Register, avoiding
// reflection on the hot path.
type typedColumn[T any] struct {
	items []T
}

func (c *typedColumn[T]) len() int { return len(c.items) }

func (c *typedColumn[T]) push(v any) {
	if ptr, ok := v.(*T); ok {
		c.items = append(c.items, *ptr)
		return
	}
	c.items = append(c.items, v.(T))
}

func (c *typedColumn[T]) set(row int, v any) {
	if ptr, ok := v.(*T); ok {
		c.items[row] = *ptr
		return
	}
	c.items[row] = v.(T)
}

func (c *typedColumn[T]) get(row int) any {
	return &c.items[row]
}

func (c *typedColumn[T]) pushFrom(src column, srcRow int) {
	if s, ok := src.(*typedColumn[T]); ok {
		c.items = append(c.items, s.items[srcRow])
		return
	}
	c.push(src.get(srcRow))
}

func (c *typedColumn[T]) swapRemove(row int) {
	last := len(c.items) - 1
	if row != last {
		c.items[row] = c.items[last]
	}
	var zero T
	c.items[last] = zero
	c.items = c.items[:last]
}

func (c *typedColumn[T]) reset() {
	clear(c.items)
	c.items = c.items[:0]
}

// reflectColumn backs components first seen as plain values, where no
// concrete type parameter is available to instantiate a typed column.
type reflectColumn struct {
	typ   reflect.Type
	items reflect.Value // slice of typ
}

func newReflectColumn(t reflect.Type) *reflectColumn {
	return &reflectColumn{
		typ:   t,
		items: reflect.MakeSlice(reflect.SliceOf(t), 0, 0),
	}
}

func (c *reflectColumn) len() int { return c.items.Len() }

func (c *reflectColumn) value(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.Type().Elem() == c.typ {
		rv = rv.Elem()
	}
	return rv
}

func (c *reflectColumn) push(v any) {
	c.items = reflect.Append(c.items, c.value(v))
}

func (c *reflectColumn) set(row int, v any) {
	c.items.Index(row).Set(c.value(v))
}

func (c *reflectColumn) get(row int) any {
	return c.items.Index(row).Addr().Interface()
}

func (c *reflectColumn) pushFrom(src column, srcRow int) {
	if s, ok := src.(*reflectColumn); ok {
		c.items = reflect.Append(c.items, s.items.Index(srcRow))
		return
	}
	c.push(src.get(srcRow))
}

func (c *reflectColumn) swapRemove(row int) {
	last := c.items.Len() - 1
	if row != last {
		c.items.Index(row).Set(c.items.Index(last))
	}
	c.items.Index(last).SetZero()
	c.items = c.items.Slice(0, last)
}

func (c *reflectColumn) reset() {
	for i := 0; i < c.items.Len(); i++ {
		c.items.Index(i).SetZero()
	}
	c.items = c.items.Slice(0, 0)
}
