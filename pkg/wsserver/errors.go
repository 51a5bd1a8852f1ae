package wsserver

import (
	"errors"

	"github.com/wostzone/wot-servient/pkg/wot"
	"github.com/wostzone/wot-servient/pkg/wsproto"
)

// codeFor translates a pkg/wot sentinel error into the wire error code
// enum (spec §7's taxonomy). Anything unrecognized becomes
// internal-error, the same catch-all the teacher's handlers fall back
// to for unexpected conditions.
func codeFor(err error) wsproto.ErrorCode {
	switch {
	case errors.Is(err, wot.ErrNotFound):
		return wsproto.CodeNotFound
	case errors.Is(err, wot.ErrNotWritable):
		return wsproto.CodeNotWritable
	case errors.Is(err, wot.ErrNotObservable):
		return wsproto.CodeNotObservable
	case errors.Is(err, wot.ErrNoHandler):
		return wsproto.CodeInternalError
	default:
		return wsproto.CodeInternalError
	}
}
