package fixedpoint

import "clmmctl/internal/clmmerr"

var (
	errTickSpacing = clmmerr.New(clmmerr.KindBadRequest, "tick spacing must be positive", nil)
	errWidthPct    = clmmerr.New(clmmerr.KindBadRequest, "width percentage must be positive", nil)
	errTickOrder   = clmmerr.New(clmmerr.KindBadRequest, "tick lower must be less than tick upper", nil)
)
