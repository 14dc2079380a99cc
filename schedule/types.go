package schedule

import "fmt"

// Pair holds the two sides of a product schedule.
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairOf builds a Pair.
func PairOf[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// Either is a value on exactly one of two sides.
type Either[L, R any] struct {
	Left    L
	Right   R
	IsRight bool
}

// LeftOf returns an Either holding l.
func LeftOf[L, R any](l L) Either[L, R] {
	return Either[L, R]{Left: l}
}

// RightOf returns an Either holding r.
func RightOf[L, R any](r R) Either[L, R] {
	return Either[L, R]{Right: r, IsRight: true}
}

func (e Either[L, R]) String() string {
	if e.IsRight {
		return fmt.Sprintf("Right(%v)", e.Right)
	}
	return fmt.Sprintf("Left(%v)", e.Left)
}
