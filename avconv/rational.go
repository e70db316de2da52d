package avconv

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avscene/types"
)

func RationalFromAV(r astiav.Rational) types.Rational {
	return types.Rational{
		Num: r.Num(),
		Den: r.Den(),
	}
}

func RationalToAV(r types.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}
