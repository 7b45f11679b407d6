package inter

import (
	"fmt"
	"math"
)

// Weight is the abstract execution cost of a call.
type Weight uint64

// SaturatingAdd never wraps.
func (w Weight) SaturatingAdd(o Weight) Weight {
	if math.MaxUint64-w < o {
		return math.MaxUint64
	}
	return w + o
}

func (w Weight) SaturatingSub(o Weight) Weight {
	if o > w {
		return 0
	}
	return w - o
}

// DispatchClass partitions the block weight budget.
type DispatchClass uint8

const (
	Normal DispatchClass = iota
	Operational
	Mandatory

	DispatchClasses = 3
)

func (c DispatchClass) String() string {
	switch c {
	case Normal:
		return "normal"
	case Operational:
		return "operational"
	case Mandatory:
		return "mandatory"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ClassWeights tracks weight consumed per dispatch class.
type ClassWeights struct {
	W [DispatchClasses]Weight
}

func (cw ClassWeights) Get(c DispatchClass) Weight {
	return cw.W[c]
}

func (cw *ClassWeights) Add(c DispatchClass, w Weight) {
	cw.W[c] = cw.W[c].SaturatingAdd(w)
}

func (cw *ClassWeights) Sub(c DispatchClass, w Weight) {
	cw.W[c] = cw.W[c].SaturatingSub(w)
}

// Total is the sum over all classes.
func (cw ClassWeights) Total() Weight {
	var total Weight
	for _, w := range cw.W {
		total = total.SaturatingAdd(w)
	}
	return total
}

func (cw ClassWeights) String() string {
	return fmt.Sprintf("{normal=%d, operational=%d, mandatory=%d}", cw.W[Normal], cw.W[Operational], cw.W[Mandatory])
}
